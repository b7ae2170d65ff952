package collection

import (
	"go.uber.org/zap"

	"transopt/internal/futurecost"
)

// CalcFutureScore fills the future cost matrix: each span starts from its
// best option and is then raised to the best sum over two adjoining parts.
func (c *Collection) CalcFutureScore() *futurecost.Matrix {
	m := futurecost.New(c.Size())
	c.forEach(func(start, l int, ids []OptionID) {
		for _, id := range ids {
			m.Raise(start, start+l, c.arena[id].score)
		}
	})
	m.Join()
	c.future = m

	if c.logger.Core().Enabled(zap.DebugLevel) {
		total := 0
		c.forEach(func(start, l int, ids []OptionID) {
			c.logger.Debug("translation options per span",
				zap.Int("start", start),
				zap.Int("end", start+l),
				zap.Int("count", len(ids)))
			total += len(ids)
		})
		c.logger.Debug("translation options generated in total", zap.Int("total", total))
		c.logger.Debug("future costs\n" + m.String())
	}
	return m
}
