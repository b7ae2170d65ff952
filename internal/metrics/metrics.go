// Package metrics exports prometheus instruments for option construction.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Option origins.
const (
	SourceTable   = "table"
	SourceUnknown = "unknown"
	SourceXML     = "xml"
)

// Pruning stages.
const (
	StageEarly     = "early"
	StageNBest     = "nbest"
	StageThreshold = "threshold"
)

var (
	// OptionsCreated counts options added to a collection.
	// Labels: "table", "unknown", "xml"
	OptionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transopt_options_created_total",
		Help: "Translation options added to collections by origin",
	}, []string{"source"})

	// OptionsPruned counts discarded options.
	// Labels: "early", "nbest", "threshold"
	OptionsPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transopt_options_pruned_total",
		Help: "Translation options discarded by pruning stage",
	}, []string{"stage"})

	SentenceLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transopt_sentence_length_words",
		Help:    "Source sentence length",
		Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
	})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transopt_build_duration_seconds",
		Help:    "Time to build the option collection of one sentence",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})

	BuildFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transopt_build_failures_total",
		Help: "Sentences whose option construction aborted",
	})
)
