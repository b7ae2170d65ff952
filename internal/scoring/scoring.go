// Package scoring holds per-feature score vectors and their weighted total.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// LowestScore is the floor applied to log-domain scores.
const LowestScore = -100.0

// DefaultWeight is used for any component without a configured weight.
const DefaultWeight = 1.0

// TransformScore moves a probability into the log domain.
func TransformScore(p float64) float64 { return math.Log(p) }

// FloorScore clamps s to LowestScore.
func FloorScore(s float64) float64 {
	if s < LowestScore || math.IsNaN(s) {
		return LowestScore
	}
	return s
}

// Breakdown maps a feature name to its score components.
type Breakdown map[string][]float64

// Assign replaces the components of feature.
func (b Breakdown) Assign(feature string, vals ...float64) {
	b[feature] = append([]float64(nil), vals...)
}

// PlusEquals adds vals component-wise to feature, growing it if needed.
func (b Breakdown) PlusEquals(feature string, vals ...float64) {
	cur := b[feature]
	for len(cur) < len(vals) {
		cur = append(cur, 0)
	}
	for i, v := range vals {
		cur[i] += v
	}
	b[feature] = cur
}

// Merge adds every feature of o into b.
func (b Breakdown) Merge(o Breakdown) {
	for f, vals := range o {
		b.PlusEquals(f, vals...)
	}
}

// Clone returns a deep copy.
func (b Breakdown) Clone() Breakdown {
	out := make(Breakdown, len(b))
	for f, vals := range b {
		out[f] = append([]float64(nil), vals...)
	}
	return out
}

// Names returns the feature names of b in sorted order.
func (b Breakdown) Names() []string {
	names := make([]string, 0, len(b))
	for f := range b {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

func (b Breakdown) String() string {
	var sb strings.Builder
	for i, f := range b.Names() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f)
		sb.WriteByte('=')
		for j, v := range b[f] {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%.3f", v)
		}
	}
	return sb.String()
}

// Weights maps a feature name to one weight per score component.
type Weights map[string][]float64

// Weight returns the weight of component i of feature.
func (w Weights) Weight(feature string, i int) float64 {
	if ws, ok := w[feature]; ok && i < len(ws) {
		return ws[i]
	}
	return DefaultWeight
}

// Score is the weighted sum of every component in b. Features are summed
// in name order so equal breakdowns always give bit-identical totals.
func (w Weights) Score(b Breakdown) float64 {
	total := 0.0
	for _, f := range b.Names() {
		for i, v := range b[f] {
			total += w.Weight(f, i) * v
		}
	}
	return total
}
