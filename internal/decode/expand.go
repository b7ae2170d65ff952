package decode

import (
	"context"
	"fmt"

	"transopt/internal/scoring"
	"transopt/internal/table"
)

// Resolver returns the target phrases a lookup step offers for the span
// being processed.
type Resolver func(ctx context.Context, step LookupStep) (*table.Collection, error)

// Expander runs decode steps for one span.
type Expander struct {
	Weights scoring.Weights
	// MaxPartial caps every PartialCollection; 0 disables the cap.
	MaxPartial int
}

// Initial seeds a collection from the first lookup step.
func (e Expander) Initial(ctx context.Context, step LookupStep, resolve Resolver, adhereTableLimit bool) (*PartialCollection, error) {
	coll, err := resolve(ctx, step)
	if err != nil {
		return nil, err
	}
	out := NewPartialCollection(e.MaxPartial)
	for _, tp := range coll.Limit(adhereTableLimit, step.Table.TableLimit()) {
		p := Partial{
			Target:    tp.Words.Clone(),
			Scores:    tp.Scores.Clone(),
			Alignment: append(tp.Alignment[:0:0], tp.Alignment...),
		}
		p.Score = e.Weights.Score(p.Scores)
		out.Add(p)
	}
	return out, nil
}

// Expand applies step to every option of in and returns the new collection.
func (e Expander) Expand(ctx context.Context, step Step, in *PartialCollection, resolve Resolver, adhereTableLimit bool) (*PartialCollection, error) {
	out := NewPartialCollection(e.MaxPartial)
	switch s := step.(type) {
	case LookupStep:
		coll, err := resolve(ctx, s)
		if err != nil {
			return nil, err
		}
		phrases := coll.Limit(adhereTableLimit, s.Table.TableLimit())
		factors := s.Table.OutputFactors()
		for _, p := range in.List() {
			for _, tp := range phrases {
				if len(tp.Words) != len(p.Target) {
					continue
				}
				compatible := true
				for i := range tp.Words {
					if !p.Target[i].Compatible(tp.Words[i], factors) {
						compatible = false
						break
					}
				}
				if !compatible {
					continue
				}
				np := p.clone()
				for i := range np.Target {
					np.Target[i].Merge(tp.Words[i], factors)
				}
				np.Scores.Merge(tp.Scores)
				if len(np.Alignment) == 0 {
					np.Alignment = append(np.Alignment, tp.Alignment...)
				}
				np.Score = e.Weights.Score(np.Scores)
				out.Add(np)
			}
		}
	case GenerateStep:
		for _, p := range in.List() {
			if err := e.generate(ctx, s, p, out); err != nil {
				return nil, err
			}
		}
	default:
		panic(fmt.Sprintf("decode: unhandled step type %T", step))
	}
	return out, nil
}

// generate emits the cartesian product of the generation candidates of
// every target word. A word without candidates drops the option.
func (e Expander) generate(ctx context.Context, s GenerateStep, p Partial, out *PartialCollection) error {
	in, factors := s.Table.InputFactors(), s.Table.OutputFactors()
	cands := make([][]table.GenerationEntry, len(p.Target))
	for i, w := range p.Target {
		es, err := s.Table.Lookup(ctx, w.Key(in))
		if err != nil {
			return fmt.Errorf("generation table %s: %w", s.Table.Name(), err)
		}
		var ok []table.GenerationEntry
		for _, e := range es {
			if w.Compatible(e.Word, factors) {
				ok = append(ok, e)
			}
		}
		if len(ok) == 0 {
			return nil
		}
		cands[i] = ok
	}

	idx := make([]int, len(cands))
	for {
		np := p.clone()
		for i, j := range idx {
			np.Target[i].Merge(cands[i][j].Word, factors)
			np.Scores.Merge(cands[i][j].Scores)
		}
		np.Score = e.Weights.Score(np.Scores)
		out.Add(np)

		// advance the odometer, last position fastest
		k := len(idx) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(cands[k]) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return nil
		}
	}
}
