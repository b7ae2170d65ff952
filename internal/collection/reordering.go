package collection

import (
	"transopt/internal/feature"
)

// cacheLexReordering attaches the scores of every lexical reordering model
// to every option in the grid, once per option.
func (c *Collection) cacheLexReordering() {
	if !c.opts.CacheLexReordering || len(c.models.Reordering) == 0 {
		return
	}
	for _, lr := range c.models.Reordering {
		c.forEach(func(_, _ int, ids []OptionID) {
			for _, id := range ids {
				o := &c.arena[id]
				scores := lr.Scores(o.Path.Phrase, o.Target)
				if len(scores) == 0 {
					continue
				}
				if o.lexReordering == nil {
					o.lexReordering = make(map[string][]float64)
				}
				o.lexReordering[lr.Name()] = scores
			}
		})
	}
}

// LexReorderingScores returns the reordering scores of option id under lr,
// from the cache when present.
func (c *Collection) LexReorderingScores(id OptionID, lr *feature.LexicalReordering) []float64 {
	o := &c.arena[id]
	if s, ok := o.lexReordering[lr.Name()]; ok {
		return s
	}
	return lr.Scores(o.Path.Phrase, o.Target)
}
