package phrase

import (
	"fmt"
	"strconv"
	"strings"

	"transopt/internal/scoring"
)

// Phrase is an ordered sequence of words.
type Phrase []Word

// ParsePhrase splits s on whitespace and parses every token with ParseWord.
func ParsePhrase(s string) Phrase {
	fields := strings.Fields(s)
	p := make(Phrase, len(fields))
	for i, f := range fields {
		p[i] = ParseWord(f)
	}
	return p
}

// ParsePhraseFactors is ParsePhrase with explicit factor slots.
func ParsePhraseFactors(s string, factors []int) Phrase {
	fields := strings.Fields(s)
	p := make(Phrase, len(fields))
	for i, f := range fields {
		p[i] = ParseWordFactors(f, factors)
	}
	return p
}

// Key joins the per-word keys with single spaces.
func (p Phrase) Key(factors []int) string {
	parts := make([]string, len(p))
	for i, w := range p {
		parts[i] = w.Key(factors)
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy that shares no storage with p.
func (p Phrase) Clone() Phrase { return append(Phrase(nil), p...) }

// Contains reports whether sub occurs contiguously in p, comparing
// surface factors.
func (p Phrase) Contains(sub Phrase) bool {
	if len(sub) == 0 {
		return true
	}
	for i := 0; i+len(sub) <= len(p); i++ {
		match := true
		for j := range sub {
			if p[i+j].Surface() != sub[j].Surface() {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (p Phrase) String() string {
	parts := make([]string, len(p))
	for i, w := range p {
		parts[i] = w.String()
	}
	return strings.Join(parts, " ")
}

// Span is an inclusive range of source positions.
type Span struct {
	Start int
	End   int
}

// Len is the number of positions covered.
func (s Span) Len() int { return s.End - s.Start + 1 }

// Overlaps reports whether s and o share a position.
func (s Span) Overlaps(o Span) bool { return s.Start <= o.End && o.Start <= s.End }

// Contains reports whether o lies inside s.
func (s Span) Contains(o Span) bool { return s.Start <= o.Start && o.End <= s.End }

func (s Span) String() string { return fmt.Sprintf("[%d..%d]", s.Start, s.End) }

// AlignmentPoint links a source offset to a target offset inside a phrase pair.
type AlignmentPoint struct {
	Source int
	Target int
}

// Alignment is a set of word alignment points.
type Alignment []AlignmentPoint

// ParseAlignment reads the "0-0 1-2" notation.
func ParseAlignment(s string) (Alignment, error) {
	var a Alignment
	for _, tok := range strings.Fields(s) {
		src, tgt, ok := strings.Cut(tok, "-")
		if !ok {
			return nil, fmt.Errorf("alignment point %q: missing '-'", tok)
		}
		si, err := strconv.Atoi(src)
		if err != nil {
			return nil, fmt.Errorf("alignment point %q: %w", tok, err)
		}
		ti, err := strconv.Atoi(tgt)
		if err != nil {
			return nil, fmt.Errorf("alignment point %q: %w", tok, err)
		}
		a = append(a, AlignmentPoint{Source: si, Target: ti})
	}
	return a, nil
}

func (a Alignment) String() string {
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = strconv.Itoa(p.Source) + "-" + strconv.Itoa(p.Target)
	}
	return strings.Join(parts, " ")
}

// TargetPhrase is a candidate translation of a source phrase together with
// its scores. Score is the weighted total used for ordering inside tables.
type TargetPhrase struct {
	Words     Phrase
	Scores    scoring.Breakdown
	Alignment Alignment
	Score     float64
}

// Clone returns a deep copy.
func (tp *TargetPhrase) Clone() *TargetPhrase {
	return &TargetPhrase{
		Words:     tp.Words.Clone(),
		Scores:    tp.Scores.Clone(),
		Alignment: append(Alignment(nil), tp.Alignment...),
		Score:     tp.Score,
	}
}

func (tp *TargetPhrase) String() string {
	return fmt.Sprintf("%s c=%.3f [%s]", tp.Words, tp.Score, tp.Scores)
}
