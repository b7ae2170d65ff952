// Package xmlopt carries externally supplied translations for source spans
// (markup annotations) and the modes that decide how they interact with
// table lookups.
package xmlopt

import (
	"fmt"
	"strings"

	"transopt/internal/phrase"
	"transopt/internal/scoring"
)

// FeatureName scores injected annotation options.
const FeatureName = "XmlOption"

// Mode selects how annotations are used.
type Mode int

const (
	// ModeOff ignores annotations.
	ModeOff Mode = iota
	// ModePassThrough keeps annotations for downstream use only.
	ModePassThrough
	// ModeInclusive adds annotations next to table options.
	ModeInclusive
	// ModeExclusive skips table lookup for spans overlapping an annotation.
	ModeExclusive
	// ModeConstraint rejects table options that contradict an annotation.
	ModeConstraint
)

var modeNames = map[Mode]string{
	ModeOff:         "off",
	ModePassThrough: "pass-through",
	ModeInclusive:   "inclusive",
	ModeExclusive:   "exclusive",
	ModeConstraint:  "constraint",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode reads a mode name; the empty string is ModeOff.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeOff, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("xmlopt: unknown mode %q", s)
}

// Annotation is one externally supplied translation of a span.
type Annotation struct {
	Span   phrase.Span
	Target phrase.Phrase
	Scores scoring.Breakdown
}

// NewAnnotation builds an annotation with a probability score.
func NewAnnotation(span phrase.Span, target string, prob float64) Annotation {
	scores := scoring.Breakdown{}
	scores.Assign(FeatureName, scoring.FloorScore(scoring.TransformScore(prob)))
	return Annotation{Span: span, Target: phrase.ParsePhrase(target), Scores: scores}
}

// Overlay is the set of annotations of one sentence. A nil Overlay has none.
type Overlay struct {
	annotations []Annotation
}

// New creates an overlay.
func New(anns ...Annotation) *Overlay {
	return &Overlay{annotations: anns}
}

// Len is the number of annotations.
func (o *Overlay) Len() int {
	if o == nil {
		return 0
	}
	return len(o.annotations)
}

// HasOverlapping reports whether any annotation shares a position with span.
func (o *Overlay) HasOverlapping(span phrase.Span) bool {
	if o == nil {
		return false
	}
	for _, a := range o.annotations {
		if a.Span.Overlaps(span) {
			return true
		}
	}
	return false
}

// Violates reports whether a table option covering span with target tgt
// contradicts an annotation: it partially overlaps an annotated span, or it
// contains one without containing its translation.
func (o *Overlay) Violates(span phrase.Span, tgt phrase.Phrase) bool {
	if o == nil {
		return false
	}
	for _, a := range o.annotations {
		if !a.Span.Overlaps(span) {
			continue
		}
		if !span.Contains(a.Span) {
			return true
		}
		if !tgt.Contains(a.Target) {
			return true
		}
	}
	return false
}

// OptionsFor returns the annotations covering exactly span.
func (o *Overlay) OptionsFor(span phrase.Span) []Annotation {
	if o == nil {
		return nil
	}
	var out []Annotation
	for _, a := range o.annotations {
		if a.Span == span {
			out = append(out, a)
		}
	}
	return out
}
