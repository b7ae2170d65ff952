package options

import (
	"math"

	"transopt/internal/xmlopt"
)

// DefaultOptions are the limits used when no option overrides them.
var DefaultOptions = CollectionOptions{
	MaxPhraseLength:    20,
	MaxOptionsPerSpan:  50,
	Threshold:          math.Inf(-1),
	MaxPartialOptions:  10000,
	DropUnknown:        false,
	AlwaysCreateDirect: false,
	CacheLexReordering: true,
	XMLMode:            xmlopt.ModeOff,
}

type CollectionOptions struct {
	MaxPhraseLength    int         // longest source span looked up
	MaxOptionsPerSpan  int         // N-best cap per span, 0 = unlimited
	Threshold          float64     // absolute score cut-off, -Inf = disabled
	MaxPartialOptions  int         // cap per decode step, 0 = unlimited
	DropUnknown        bool        // delete unknown words instead of copying them
	AlwaysCreateDirect bool        // inject the pass-through option for every word
	CacheLexReordering bool        // attach reordering scores after pruning
	XMLMode            xmlopt.Mode // how span annotations are applied
}

type Options interface {
	Apply(options *CollectionOptions)
}

type FuncConfig struct {
	ops func(options *CollectionOptions)
}

func (w FuncConfig) Apply(conf *CollectionOptions) {
	w.ops(conf)
}

func NewFuncOption(f func(options *CollectionOptions)) *FuncConfig {
	return &FuncConfig{ops: f}
}

// Resolve applies opts over DefaultOptions.
func Resolve(opts ...Options) CollectionOptions {
	o := DefaultOptions
	for _, opt := range opts {
		opt.Apply(&o)
	}
	return o
}

func WithMaxPhraseLength(n int) Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.MaxPhraseLength = n
	})
}

func WithMaxOptionsPerSpan(n int) Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.MaxOptionsPerSpan = n
	})
}

func WithThreshold(th float64) Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.Threshold = th
	})
}

// WithoutPruning disables both the N-best cap and the threshold.
func WithoutPruning() Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.MaxOptionsPerSpan = 0
		options.Threshold = math.Inf(-1)
	})
}

func WithMaxPartialOptions(n int) Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.MaxPartialOptions = n
	})
}

func WithDropUnknown() Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.DropUnknown = true
	})
}

func WithAlwaysCreateDirect() Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.AlwaysCreateDirect = true
	})
}

func WithLexReorderingCache(enabled bool) Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.CacheLexReordering = enabled
	})
}

func WithXMLMode(mode xmlopt.Mode) Options {
	return NewFuncOption(func(options *CollectionOptions) {
		options.XMLMode = mode
	})
}
