package feature

import (
	"fmt"

	"transopt/internal/phrase"
	"transopt/internal/table"
)

// LexicalReordering holds phrase-pair specific reordering scores
// (monotone/swap/discontinuous, per direction).
type LexicalReordering struct {
	name     string
	src, tgt []int
	entries  map[string][]float64
}

// NewLexicalReordering creates an empty model over the given factors.
func NewLexicalReordering(name string, srcFactors, tgtFactors []int) *LexicalReordering {
	return &LexicalReordering{name: name, src: srcFactors, tgt: tgtFactors, entries: make(map[string][]float64)}
}

// LoadLexicalReordering reads "src ||| tgt ||| probs" lines.
func LoadLexicalReordering(path, name string, srcFactors, tgtFactors []int) (*LexicalReordering, error) {
	lr := NewLexicalReordering(name, srcFactors, tgtFactors)
	err := table.ScanLines(path, func(_ int, line string) error {
		fields := table.SplitFields(line)
		if len(fields) < 3 {
			return fmt.Errorf("expected 3 fields, got %d", len(fields))
		}
		scores, err := table.ParseProbabilities(fields[2])
		if err != nil {
			return err
		}
		lr.Add(phrase.ParsePhraseFactors(fields[0], srcFactors), phrase.ParsePhraseFactors(fields[1], tgtFactors), scores)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load reordering table %s: %w", name, err)
	}
	return lr, nil
}

func (lr *LexicalReordering) Name() string { return lr.name }

func (lr *LexicalReordering) key(src, tgt phrase.Phrase) string {
	return src.Key(lr.src) + " " + table.FieldSeparator + " " + tgt.Key(lr.tgt)
}

// Add stores log-domain scores for a phrase pair.
func (lr *LexicalReordering) Add(src, tgt phrase.Phrase, scores []float64) {
	lr.entries[lr.key(src, tgt)] = scores
}

// Scores returns the scores of a phrase pair, or nil when unknown.
func (lr *LexicalReordering) Scores(src, tgt phrase.Phrase) []float64 {
	return lr.entries[lr.key(src, tgt)]
}
