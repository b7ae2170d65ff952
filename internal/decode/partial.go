package decode

import (
	"math"
	"sort"

	"transopt/internal/phrase"
	"transopt/internal/scoring"
)

// Partial is a translation option under construction.
type Partial struct {
	Target    phrase.Phrase
	Scores    scoring.Breakdown
	Alignment phrase.Alignment
	Score     float64
}

func (p Partial) clone() Partial {
	return Partial{
		Target:    p.Target.Clone(),
		Scores:    p.Scores.Clone(),
		Alignment: append(phrase.Alignment(nil), p.Alignment...),
		Score:     p.Score,
	}
}

// PartialCollection is the output of one decode step. It holds at most
// twice maxSize options before cutting back to the best maxSize; anything
// scoring below the worst survivor of a cut is rejected on arrival.
type PartialCollection struct {
	list    []Partial
	maxSize int
	worst   float64
	pruned  int
}

// NewPartialCollection creates a collection; maxSize 0 disables the cap.
func NewPartialCollection(maxSize int) *PartialCollection {
	return &PartialCollection{maxSize: maxSize, worst: math.Inf(-1)}
}

// Add keeps p unless it scores below the current cut-off.
func (c *PartialCollection) Add(p Partial) {
	if p.Score < c.worst {
		c.pruned++
		return
	}
	c.list = append(c.list, p)
	if c.maxSize > 0 && len(c.list) > 2*c.maxSize {
		c.Prune()
	}
}

// Prune cuts the collection back to its best maxSize options.
func (c *PartialCollection) Prune() {
	if c.maxSize == 0 || len(c.list) <= c.maxSize {
		return
	}
	sort.SliceStable(c.list, func(i, j int) bool { return c.list[i].Score > c.list[j].Score })
	c.worst = c.list[c.maxSize-1].Score
	c.pruned += len(c.list) - c.maxSize
	c.list = c.list[:c.maxSize]
}

// List returns the options in insertion order (or score order after a cut).
func (c *PartialCollection) List() []Partial { return c.list }

// Len is the number of options held.
func (c *PartialCollection) Len() int { return len(c.list) }

// Pruned is the number of options discarded so far.
func (c *PartialCollection) Pruned() int { return c.pruned }
