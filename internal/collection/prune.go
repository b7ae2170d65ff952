package collection

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"transopt/internal/metrics"
)

// Prune cuts every span list to the MaxOptionsPerSpan best options and then
// drops options scoring below Threshold. It returns the number of options
// seen and removed; with both limits disabled nothing is touched.
func (c *Collection) Prune() (total, pruned int) {
	if c.opts.MaxOptionsPerSpan == 0 && math.IsInf(c.opts.Threshold, -1) {
		return 0, 0
	}
	var nbest, threshold int
	for start, row := range c.grid {
		for l, ids := range row {
			total += len(ids)
			var n int
			ids, n = c.selectNBest(ids, c.opts.MaxOptionsPerSpan)
			nbest += n
			ids, n = c.pruneByThreshold(ids, c.opts.Threshold)
			threshold += n
			c.grid[start][l] = ids
		}
	}
	pruned = nbest + threshold
	c.stats.Pruned += pruned
	metrics.OptionsPruned.WithLabelValues(metrics.StageNBest).Add(float64(nbest))
	metrics.OptionsPruned.WithLabelValues(metrics.StageThreshold).Add(float64(threshold))
	c.logger.Debug("pruned translation options",
		zap.Int("total", total),
		zap.Int("pruned", pruned))
	return total, pruned
}

// selectNBest keeps the n best options; equal scores keep insertion order.
func (c *Collection) selectNBest(ids []OptionID, n int) ([]OptionID, int) {
	if n == 0 || len(ids) <= n {
		return ids, 0
	}
	c.sortIDs(ids)
	return ids[:n], len(ids) - n
}

// pruneByThreshold keeps options scoring at least th, preserving order.
func (c *Collection) pruneByThreshold(ids []OptionID, th float64) ([]OptionID, int) {
	if math.IsInf(th, -1) {
		return ids, 0
	}
	kept := ids[:0]
	for _, id := range ids {
		if c.arena[id].score >= th {
			kept = append(kept, id)
		}
	}
	return kept, len(ids) - len(kept)
}

// Sort orders every span list best first; equal scores keep insertion order.
func (c *Collection) Sort() {
	for _, row := range c.grid {
		for _, ids := range row {
			c.sortIDs(ids)
		}
	}
}

func (c *Collection) sortIDs(ids []OptionID) {
	sort.SliceStable(ids, func(i, j int) bool {
		return c.arena[ids[i]].score > c.arena[ids[j]].score
	})
}
