// Package table defines the phrase and generation table contracts consumed
// by option construction, plus in-memory and file backed implementations.
package table

import (
	"context"
	"math"
	"sort"

	"transopt/internal/phrase"
	"transopt/internal/scoring"
)

// PhraseTable maps a source phrase key to its candidate target phrases.
// Keys are phrase.Phrase.Key over InputFactors; the returned phrases carry
// only OutputFactors. A missing key is not an error and yields nil.
type PhraseTable interface {
	Name() string
	InputFactors() []int
	OutputFactors() []int
	TableLimit() int
	Lookup(ctx context.Context, key string) (*Collection, error)
}

// Batcher is implemented by tables that can serve many keys in one round
// trip. Keys without entries are absent from the result.
type Batcher interface {
	LookupBatch(ctx context.Context, keys []string) (map[string]*Collection, error)
}

// GenerationEntry is one output word generated from an input word.
type GenerationEntry struct {
	Word   phrase.Word
	Scores scoring.Breakdown
}

// GenerationTable maps a target word key over InputFactors to words
// carrying OutputFactors.
type GenerationTable interface {
	Name() string
	InputFactors() []int
	OutputFactors() []int
	Lookup(ctx context.Context, key string) ([]GenerationEntry, error)
}

// Collection is the list of target phrases of one source phrase, kept in
// descending score order.
type Collection struct {
	Phrases []*phrase.TargetPhrase
	// Count is the summed joint count of the phrase pairs, when known.
	Count int64
	// Entropy of the normalized score distribution over Phrases.
	Entropy float64
}

// Add appends tp without reordering.
func (c *Collection) Add(tp *phrase.TargetPhrase) { c.Phrases = append(c.Phrases, tp) }

// Len is the number of target phrases.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Phrases)
}

// Sort orders phrases by score, best first; ties keep insertion order.
func (c *Collection) Sort() {
	sort.SliceStable(c.Phrases, func(i, j int) bool { return c.Phrases[i].Score > c.Phrases[j].Score })
}

// Limit returns the leading phrases allowed under limit. With adhere false
// or limit 0 every phrase is returned.
func (c *Collection) Limit(adhere bool, limit int) []*phrase.TargetPhrase {
	if c == nil {
		return nil
	}
	if !adhere || limit <= 0 || len(c.Phrases) <= limit {
		return c.Phrases
	}
	return c.Phrases[:limit]
}

func (c *Collection) computeEntropy() {
	if len(c.Phrases) == 0 {
		c.Entropy = 0
		return
	}
	z := 0.0
	for _, tp := range c.Phrases {
		z += math.Exp(tp.Score)
	}
	h := 0.0
	for _, tp := range c.Phrases {
		p := math.Exp(tp.Score) / z
		if p > 0 {
			h -= p * math.Log(p)
		}
	}
	c.Entropy = h
}
