package collection

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"transopt/internal/feature"
	"transopt/internal/metrics"
	"transopt/internal/phrase"
	"transopt/internal/scoring"
)

// processUnknownWords makes sure single words get an option: first every
// graph is retried on empty one-word spans without table limits, then a
// fallback option is made for each word still uncovered (or for every word
// when AlwaysCreateDirect is set).
func (c *Collection) processUnknownWords(ctx context.Context) error {
	size := c.Size()
	for gidx, g := range c.models.Graphs {
		for pos := 0; pos < size; pos++ {
			if l, ok := c.List(pos, pos); !ok || l.Len() == 0 {
				if err := c.createOptionsForRange(ctx, g, gidx, pos, pos, false); err != nil {
					return err
				}
			}
		}
	}

	for pos := 0; pos < size; pos++ {
		if l, ok := c.List(pos, pos); !ok || l.Len() == 0 || c.opts.AlwaysCreateDirect {
			c.processOneUnknownWord(c.path(pos, pos))
		}
	}
	return nil
}

// processOneUnknownWord adds the fallback option of a one-word path: the
// word copied factor by factor and marked OOV, or an empty target when the
// word is epsilon or unknown words are dropped (numbers are kept).
func (c *Collection) processOneUnknownWord(path *InputPath) {
	src := path.Phrase[0]
	s := src.Surface()
	isEpsilon := s == "" || s == phrase.Epsilon
	numeric := s != "" && strings.Trim(s, "0123456789") == ""

	var (
		target    phrase.Phrase
		alignment phrase.Alignment
	)
	if !isEpsilon && (!c.opts.DropUnknown || numeric) {
		w := phrase.Word{OOV: true}
		for f := 0; f < phrase.MaxFactors; f++ {
			if src.Factors[f] == "" {
				w.Factors[f] = phrase.UnknownFactor
			} else {
				w.Factors[f] = src.Factors[f]
			}
		}
		target = phrase.Phrase{w}
		alignment = phrase.Alignment{{Source: 0, Target: 0}}
	}

	scores := scoring.Breakdown{}
	scores.Assign(feature.UnknownWordPenalty, scoring.FloorScore(scoring.TransformScore(0)))

	c.unknownSources = append(c.unknownSources, path.Phrase)
	c.stats.Unknown++
	c.logger.Debug("unknown word",
		zap.String("sentence", c.src.ID),
		zap.Stringer("span", path.Span),
		zap.String("word", src.String()),
		zap.Bool("dropped", len(target) == 0))

	c.addScored(Option{
		Span:      path.Span,
		Target:    target,
		Scores:    scores,
		Alignment: alignment,
		Path:      path,
	}, metrics.SourceUnknown)
}
