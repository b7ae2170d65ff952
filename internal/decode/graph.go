// Package decode describes decode graphs (ordered lookup and generation
// steps) and expands partial translation options through them.
package decode

import (
	"errors"
	"fmt"
	"strings"

	"transopt/internal/table"
)

var (
	// ErrEmptyGraph is returned for a graph without steps.
	ErrEmptyGraph = errors.New("decode: graph has no steps")
	// ErrFirstStepNotLookup is returned when a graph does not open with a
	// phrase table lookup.
	ErrFirstStepNotLookup = errors.New("decode: first step must be a lookup step")
)

// Step is one stage of a decode graph: LookupStep or GenerateStep.
type Step interface {
	isStep()
	String() string
}

// LookupStep extends options with target phrases of a phrase table for the
// same source span.
type LookupStep struct {
	Table table.PhraseTable
}

// GenerateStep extends options word by word from a generation table keyed
// on target factors already chosen.
type GenerateStep struct {
	Table table.GenerationTable
}

func (LookupStep) isStep()   {}
func (GenerateStep) isStep() {}

func (s LookupStep) String() string   { return "lookup:" + s.Table.Name() }
func (s GenerateStep) String() string { return "generate:" + s.Table.Name() }

// Graph is an ordered list of steps. Backoff > 0 restricts a non-first
// graph to spans longer than Backoff that no earlier graph covered.
type Graph struct {
	Steps   []Step
	Backoff int
}

// NewGraph validates and builds a graph.
func NewGraph(backoff int, steps ...Step) (*Graph, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyGraph
	}
	if _, ok := steps[0].(LookupStep); !ok {
		return nil, fmt.Errorf("%w: got %s", ErrFirstStepNotLookup, steps[0])
	}
	if backoff < 0 {
		return nil, fmt.Errorf("decode: negative backoff %d", backoff)
	}
	return &Graph{Steps: steps, Backoff: backoff}, nil
}

// First returns the opening lookup step.
func (g *Graph) First() LookupStep { return g.Steps[0].(LookupStep) }

// Lookups returns every lookup step in order.
func (g *Graph) Lookups() []LookupStep {
	var out []LookupStep
	for _, s := range g.Steps {
		if l, ok := s.(LookupStep); ok {
			out = append(out, l)
		}
	}
	return out
}

func (g *Graph) String() string {
	parts := make([]string, len(g.Steps))
	for i, s := range g.Steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " -> ")
}
