// Package futurecost holds the best achievable score for every source span,
// the estimate search uses for the part of a sentence not yet translated.
package futurecost

import (
	"fmt"
	"math"
	"strings"
)

// Matrix is a square table indexed by (start, end); only start <= end is
// meaningful.
type Matrix struct {
	size  int
	cells []float64
}

// New creates a size×size matrix with every span at -Inf.
func New(size int) *Matrix {
	m := &Matrix{size: size, cells: make([]float64, size*size)}
	m.Reset()
	return m
}

// Size is the sentence length the matrix covers.
func (m *Matrix) Size() int { return m.size }

func (m *Matrix) index(start, end int) int {
	if start < 0 || end >= m.size || start > end {
		panic(fmt.Sprintf("futurecost: span [%d..%d] outside matrix of size %d", start, end, m.size))
	}
	return start*m.size + end
}

// Score returns the value for span [start..end].
func (m *Matrix) Score(start, end int) float64 { return m.cells[m.index(start, end)] }

// SetScore stores the value for span [start..end].
func (m *Matrix) SetScore(start, end int, v float64) { m.cells[m.index(start, end)] = v }

// Raise sets the span to v if v is larger than its current value.
func (m *Matrix) Raise(start, end int, v float64) {
	i := m.index(start, end)
	if v > m.cells[i] {
		m.cells[i] = v
	}
}

// Reset sets every span, diagonal included, to -Inf.
func (m *Matrix) Reset() {
	for i := range m.cells {
		m.cells[i] = math.Inf(-1)
	}
}

// Join fills every span of width >= 2 with the better of its own value and
// the best sum over a split into two adjoining spans, widest last. A
// single-word span without a value stays at -Inf.
func (m *Matrix) Join() {
	for width := 1; width < m.size; width++ {
		for start := 0; start+width < m.size; start++ {
			end := start + width
			for at := start; at < end; at++ {
				m.Raise(start, end, m.Score(start, at)+m.Score(at+1, end))
			}
		}
	}
}

// Estimate sums the scores of the maximal uncovered runs in covered.
func (m *Matrix) Estimate(covered []bool) float64 {
	if len(covered) != m.size {
		panic(fmt.Sprintf("futurecost: coverage of length %d for matrix of size %d", len(covered), m.size))
	}
	total := 0.0
	start := -1
	for pos := 0; pos <= m.size; pos++ {
		if pos < m.size && !covered[pos] {
			if start < 0 {
				start = pos
			}
			continue
		}
		if start >= 0 {
			total += m.Score(start, pos-1)
			start = -1
		}
	}
	return total
}

func (m *Matrix) String() string {
	var sb strings.Builder
	for row := 0; row < m.size; row++ {
		for col := row; col < m.size; col++ {
			fmt.Fprintf(&sb, "future cost from %d to %d is %.3f\n", row, col, m.Score(row, col))
		}
	}
	return sb.String()
}
