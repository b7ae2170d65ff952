package collection

import (
	"fmt"

	"transopt/internal/phrase"
)

// InvariantError reports an access outside the span grid. It is raised as
// a panic at the point of violation; Build recovers it into its error.
type InvariantError struct {
	Op             string
	Span           phrase.Span
	RowWidth       int
	SentenceLength int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("collection: %s: out of bound access %s (row width %d, sentence length %d)",
		e.Op, e.Span, e.RowWidth, e.SentenceLength)
}
