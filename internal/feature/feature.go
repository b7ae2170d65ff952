// Package feature implements the feature functions evaluated while
// translation options are built.
package feature

import (
	"transopt/internal/input"
	"transopt/internal/phrase"
	"transopt/internal/scoring"
)

// Feature names with fixed meaning.
const (
	UnknownWordPenalty = "UnknownWordPenalty"
	WordPenaltyName    = "WordPenalty"
	PhrasePenaltyName  = "PhrasePenalty"
	SourceCopyName     = "SourceCopy"
)

// Isolation scores a phrase pair without looking at the rest of the sentence.
type Isolation interface {
	Name() string
	EvaluateInIsolation(src, tgt phrase.Phrase, scores scoring.Breakdown)
}

// Contextual scores a phrase pair given the whole source sentence.
type Contextual interface {
	Name() string
	EvaluateWithSourceContext(sent input.Sentence, span phrase.Span, tgt phrase.Phrase, scores scoring.Breakdown)
}

// WordPenalty adds -1 per target word.
type WordPenalty struct{}

func (WordPenalty) Name() string { return WordPenaltyName }

func (WordPenalty) EvaluateInIsolation(_, tgt phrase.Phrase, scores scoring.Breakdown) {
	scores.PlusEquals(WordPenaltyName, -float64(len(tgt)))
}

// PhrasePenalty adds 1 per phrase pair.
type PhrasePenalty struct{}

func (PhrasePenalty) Name() string { return PhrasePenaltyName }

func (PhrasePenalty) EvaluateInIsolation(_, _ phrase.Phrase, scores scoring.Breakdown) {
	scores.PlusEquals(PhrasePenaltyName, 1)
}

// SourceCopy counts target words whose surface form also occurs in the
// covered source span.
type SourceCopy struct{}

func (SourceCopy) Name() string { return SourceCopyName }

func (SourceCopy) EvaluateWithSourceContext(sent input.Sentence, span phrase.Span, tgt phrase.Phrase, scores scoring.Breakdown) {
	if len(tgt) == 0 {
		scores.PlusEquals(SourceCopyName, 0)
		return
	}
	seen := make(map[string]bool, span.Len())
	for _, w := range sent.SubPhrase(span) {
		seen[w.Surface()] = true
	}
	n := 0
	for _, w := range tgt {
		if seen[w.Surface()] {
			n++
		}
	}
	scores.PlusEquals(SourceCopyName, float64(n))
}
