package collection

import (
	"transopt/internal/decode"
	"transopt/internal/feature"
	"transopt/internal/scoring"
)

// Models are the read-only resources shared by every sentence: decode
// graphs (each referencing its tables), feature weights and features.
type Models struct {
	Graphs     []*decode.Graph
	Weights    scoring.Weights
	Isolation  []feature.Isolation
	Contextual []feature.Contextual
	Reordering []*feature.LexicalReordering
}

// Stats are the per-sentence counts reported after Build.
type Stats struct {
	Created     int `json:"created"`
	Unknown     int `json:"unknown"`
	EarlyPruned int `json:"early_pruned"`
	Total       int `json:"total"`
	Pruned      int `json:"pruned"`
}
