package collection

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"transopt/internal/decode"
	"transopt/internal/metrics"
	"transopt/internal/phrase"
	"transopt/internal/table"
	"transopt/internal/xmlopt"
)

// Build creates all translation options of the sentence: batch prefetch,
// every decode graph over every span, unknown words, source context
// features, pruning, sorting, the future cost matrix and the reordering
// cache. A grid invariant violation aborts the sentence with an
// *InvariantError; the collection must not be used afterwards.
func (c *Collection) Build(ctx context.Context) (err error) {
	t0 := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InvariantError)
			if !ok {
				panic(r)
			}
			err = ie
		}
		if err != nil {
			metrics.BuildFailures.Inc()
			c.logger.Error("option construction aborted", zap.String("sentence", c.src.ID), zap.Error(err))
			return
		}
		metrics.SentenceLength.Observe(float64(c.src.Len()))
		metrics.BuildDuration.Observe(time.Since(t0).Seconds())
	}()

	c.logger.Debug("building translation options",
		zap.String("sentence", c.src.ID),
		zap.Int("length", c.src.Len()),
		zap.Int("graphs", len(c.models.Graphs)))

	if err := c.prefetch(ctx); err != nil {
		return err
	}
	if err := c.createFromGraphs(ctx); err != nil {
		return err
	}
	if c.logger.Core().Enabled(zap.DebugLevel) {
		c.logger.Debug("translation option collection\n" + c.String())
	}
	if err := c.processUnknownWords(ctx); err != nil {
		return err
	}
	c.evaluateWithSourceContext()
	c.stats.Total = c.count()
	c.Prune()
	c.Sort()
	c.CalcFutureScore()
	c.cacheLexReordering()

	c.logger.Debug("translation options built",
		zap.String("sentence", c.src.ID),
		zap.Int("created", c.stats.Created),
		zap.Int("kept", c.stats.Total-c.stats.Pruned),
		zap.Duration("elapsed", time.Since(t0)))
	return nil
}

func (c *Collection) createFromGraphs(ctx context.Context) error {
	graphs := c.models.Graphs
	for gidx, g := range graphs {
		if len(graphs) > 1 {
			c.logger.Debug("creating translation options from decoding graph", zap.Int("graph", gidx))
		}
		for start := range c.grid {
			for l := range c.grid[start] {
				end := start + l
				if gidx > 0 && g.Backoff > 0 && (l+1 <= g.Backoff || len(c.grid[start][l]) > 0) {
					c.logger.Debug("no backoff to graph",
						zap.Int("graph", gidx),
						zap.Stringer("span", phrase.Span{Start: start, End: end}))
					continue
				}
				if err := c.createOptionsForRange(ctx, g, gidx, start, end, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// resolver serves lookups for path, using and filling its prefetch cache.
func (c *Collection) resolver(path *InputPath) decode.Resolver {
	return func(ctx context.Context, step decode.LookupStep) (*table.Collection, error) {
		t := step.Table
		if coll, ok := path.TargetPhrases(t.Name()); ok {
			return coll, nil
		}
		coll, err := t.Lookup(ctx, path.Phrase.Key(t.InputFactors()))
		if err != nil {
			return nil, fmt.Errorf("phrase table %s: %w", t.Name(), err)
		}
		path.setTargetPhrases(t.Name(), coll)
		return coll, nil
	}
}

// createOptionsForRange runs graph g over [start..end] and adds the
// resulting options, then injects annotation options for the first graph.
func (c *Collection) createOptionsForRange(ctx context.Context, g *decode.Graph, gidx, start, end int, adhereTableLimit bool) error {
	span := phrase.Span{Start: start, End: end}
	path := c.path(start, end)
	mode := c.opts.XMLMode

	if mode != xmlopt.ModeExclusive || !c.overlay.HasOverlapping(span) {
		exp := decode.Expander{Weights: c.models.Weights, MaxPartial: c.opts.MaxPartialOptions}
		resolve := c.resolver(path)

		ptoc, err := exp.Initial(ctx, g.First(), resolve, adhereTableLimit)
		if err != nil {
			return fmt.Errorf("span %s, graph %d: %w", span, gidx, err)
		}
		earlyPruned := ptoc.Pruned()
		for _, step := range g.Steps[1:] {
			next, err := exp.Expand(ctx, step, ptoc, resolve, adhereTableLimit)
			if err != nil {
				return fmt.Errorf("span %s, graph %d, %s: %w", span, gidx, step, err)
			}
			earlyPruned += next.Pruned()
			ptoc = next
		}
		c.stats.EarlyPruned += earlyPruned
		metrics.OptionsPruned.WithLabelValues(metrics.StageEarly).Add(float64(earlyPruned))

		for _, p := range ptoc.List() {
			if mode == xmlopt.ModeConstraint && c.overlay.Violates(span, p.Target) {
				continue
			}
			c.addScored(Option{
				Span:      span,
				Target:    p.Target,
				Scores:    p.Scores,
				Alignment: p.Alignment,
				Path:      path,
			}, metrics.SourceTable)
		}
	}

	if gidx == 0 && mode != xmlopt.ModePassThrough && c.overlay.HasOverlapping(span) {
		c.createXMLOptionsForRange(span)
	}
	return nil
}

// createXMLOptionsForRange adds the annotations covering exactly span.
func (c *Collection) createXMLOptionsForRange(span phrase.Span) {
	for _, a := range c.overlay.OptionsFor(span) {
		c.addScored(Option{
			Span:   span,
			Target: a.Target.Clone(),
			Scores: a.Scores.Clone(),
			Path:   c.path(span.Start, span.End),
		}, metrics.SourceXML)
	}
}

// addScored applies the in-isolation features and adds opt.
func (c *Collection) addScored(opt Option, source string) OptionID {
	for _, f := range c.models.Isolation {
		f.EvaluateInIsolation(opt.Path.Phrase, opt.Target, opt.Scores)
	}
	metrics.OptionsCreated.WithLabelValues(source).Inc()
	return c.Add(opt)
}

// prefetch asks every batch-capable table of every graph for the target
// phrases of all input paths in one request per graph and table.
func (c *Collection) prefetch(ctx context.Context) error {
	for gidx, g := range c.models.Graphs {
		for _, step := range g.Lookups() {
			b, ok := step.Table.(table.Batcher)
			if !ok {
				continue
			}
			name, factors := step.Table.Name(), step.Table.InputFactors()
			var pending []*InputPath
			var keys []string
			seen := make(map[string]bool)
			for _, row := range c.paths {
				for _, p := range row {
					if _, done := p.TargetPhrases(name); done {
						continue
					}
					pending = append(pending, p)
					k := p.Phrase.Key(factors)
					if !seen[k] {
						seen[k] = true
						keys = append(keys, k)
					}
				}
			}
			if len(keys) == 0 {
				continue
			}
			got, err := b.LookupBatch(ctx, keys)
			if err != nil {
				return fmt.Errorf("prefetch graph %d, table %s: %w", gidx, name, err)
			}
			for _, p := range pending {
				p.setTargetPhrases(name, got[p.Phrase.Key(factors)])
			}
			c.logger.Debug("prefetched target phrases",
				zap.Int("graph", gidx),
				zap.String("table", name),
				zap.Int("keys", len(keys)),
				zap.Int("hits", len(got)))
		}
	}
	return nil
}

// evaluateWithSourceContext applies the contextual features to every
// option and refreshes its total.
func (c *Collection) evaluateWithSourceContext() {
	if len(c.models.Contextual) == 0 {
		return
	}
	c.forEach(func(_, _ int, ids []OptionID) {
		for _, id := range ids {
			o := &c.arena[id]
			for _, f := range c.models.Contextual {
				f.EvaluateWithSourceContext(c.src, o.Span, o.Target, o.Scores)
			}
			o.score = c.models.Weights.Score(o.Scores)
		}
	})
}
