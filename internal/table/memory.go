package table

import (
	"context"

	"transopt/internal/phrase"
)

// Memory is a phrase table held entirely in RAM.
type Memory struct {
	name       string
	in, out    []int
	tableLimit int
	entries    map[string]*Collection
}

// NewMemory creates an empty table.
func NewMemory(name string, in, out []int, tableLimit int) *Memory {
	return &Memory{name: name, in: in, out: out, tableLimit: tableLimit, entries: make(map[string]*Collection)}
}

func (m *Memory) Name() string         { return m.name }
func (m *Memory) InputFactors() []int  { return m.in }
func (m *Memory) OutputFactors() []int { return m.out }
func (m *Memory) TableLimit() int      { return m.tableLimit }

// Add registers tp under the source key. Call Finalize once loading is done.
func (m *Memory) Add(key string, tp *phrase.TargetPhrase) {
	c, ok := m.entries[key]
	if !ok {
		c = &Collection{}
		m.entries[key] = c
	}
	c.Add(tp)
}

// Finalize sorts every collection and fills in its side info.
func (m *Memory) Finalize() {
	for _, c := range m.entries {
		c.Sort()
		c.computeEntropy()
	}
}

// Size is the number of distinct source keys.
func (m *Memory) Size() int { return len(m.entries) }

func (m *Memory) Lookup(_ context.Context, key string) (*Collection, error) {
	return m.entries[key], nil
}

func (m *Memory) LookupBatch(_ context.Context, keys []string) (map[string]*Collection, error) {
	out := make(map[string]*Collection, len(keys))
	for _, k := range keys {
		if c, ok := m.entries[k]; ok {
			out[k] = c
		}
	}
	return out, nil
}

// MemoryGeneration is a generation table held in RAM.
type MemoryGeneration struct {
	name    string
	in, out []int
	entries map[string][]GenerationEntry
}

// NewMemoryGeneration creates an empty generation table.
func NewMemoryGeneration(name string, in, out []int) *MemoryGeneration {
	return &MemoryGeneration{name: name, in: in, out: out, entries: make(map[string][]GenerationEntry)}
}

func (g *MemoryGeneration) Name() string         { return g.name }
func (g *MemoryGeneration) InputFactors() []int  { return g.in }
func (g *MemoryGeneration) OutputFactors() []int { return g.out }

// Add registers an output word for the input key.
func (g *MemoryGeneration) Add(key string, e GenerationEntry) {
	g.entries[key] = append(g.entries[key], e)
}

func (g *MemoryGeneration) Lookup(_ context.Context, key string) ([]GenerationEntry, error) {
	return g.entries[key], nil
}
