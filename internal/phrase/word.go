// Package phrase defines factored words, phrases, spans and target phrases.
package phrase

import (
	"strings"
)

// MaxFactors is the number of factor slots carried by every word.
const MaxFactors = 4

const (
	// FactorDelimiter separates factors inside a token: "house|NN|house".
	FactorDelimiter = "|"
	// Epsilon marks an empty source position (lattice input).
	Epsilon = "*EPS*"
	// UnknownFactor fills factors that an unknown source word does not carry.
	UnknownFactor = "UNK"
)

// Word is a token with up to MaxFactors factors. An empty factor is unset.
type Word struct {
	Factors [MaxFactors]string
	OOV     bool
}

// ParseWord assigns the delimited factors of s to slots 0, 1, ... in order.
func ParseWord(s string) Word {
	var w Word
	for i, f := range strings.SplitN(s, FactorDelimiter, MaxFactors) {
		w.Factors[i] = f
	}
	return w
}

// ParseWordFactors assigns the delimited factors of s to the given slots.
// Extra factors in s are ignored.
func ParseWordFactors(s string, factors []int) Word {
	var w Word
	parts := strings.Split(s, FactorDelimiter)
	for i, f := range factors {
		if i >= len(parts) {
			break
		}
		w.Factors[f] = parts[i]
	}
	return w
}

// Surface returns factor 0.
func (w Word) Surface() string { return w.Factors[0] }

// Has reports whether factor f is set.
func (w Word) Has(f int) bool { return w.Factors[f] != "" }

// Key joins the selected factors, the form phrase tables are keyed on.
func (w Word) Key(factors []int) string {
	if len(factors) == 1 {
		return w.Factors[factors[0]]
	}
	parts := make([]string, len(factors))
	for i, f := range factors {
		parts[i] = w.Factors[f]
	}
	return strings.Join(parts, FactorDelimiter)
}

// Compatible reports whether w and o agree on every selected factor that
// both of them set.
func (w Word) Compatible(o Word, factors []int) bool {
	for _, f := range factors {
		if w.Factors[f] != "" && o.Factors[f] != "" && w.Factors[f] != o.Factors[f] {
			return false
		}
	}
	return true
}

// Merge copies the selected factors that o sets into w.
func (w *Word) Merge(o Word, factors []int) {
	for _, f := range factors {
		if o.Factors[f] != "" {
			w.Factors[f] = o.Factors[f]
		}
	}
	w.OOV = w.OOV || o.OOV
}

func (w Word) String() string {
	last := 0
	for i := range w.Factors {
		if w.Factors[i] != "" {
			last = i
		}
	}
	return strings.Join(w.Factors[:last+1], FactorDelimiter)
}
