package collection

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"transopt/internal/decode"
	"transopt/internal/input"
	"transopt/internal/phrase"
	"transopt/internal/scoring"
	"transopt/internal/table"
	"transopt/pkg/options"
)

var surface = []int{0}

// addPhrase registers src -> tgt with a single log score under "tm".
func addPhrase(m *table.Memory, src, tgt string, score float64) {
	m.Add(src, &phrase.TargetPhrase{
		Words:  phrase.ParsePhrase(tgt),
		Scores: scoring.Breakdown{m.Name(): {score}},
		Score:  score,
	})
}

func memTable(name string, limit int, entries ...any) *table.Memory {
	m := table.NewMemory(name, surface, surface, limit)
	for i := 0; i+2 < len(entries); i += 3 {
		addPhrase(m, entries[i].(string), entries[i+1].(string), entries[i+2].(float64))
	}
	m.Finalize()
	return m
}

func graph(t *testing.T, backoff int, steps ...decode.Step) *decode.Graph {
	t.Helper()
	g, err := decode.NewGraph(backoff, steps...)
	require.NoError(t, err)
	return g
}

func build(t *testing.T, text string, models *Models, opts ...options.Options) *Collection {
	t.Helper()
	c, err := New(input.Parse("test", text), models, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Build(context.Background()))
	return c
}

func scoresOf(l OptionList) []float64 {
	out := make([]float64, l.Len())
	for i := range out {
		out[i] = l.At(i).Score()
	}
	return out
}

func targetsOf(l OptionList) []string {
	out := make([]string, l.Len())
	for i := range out {
		out[i] = l.At(i).Target.String()
	}
	return out
}

// countingTable records lookups and batch requests.
type countingTable struct {
	*table.Memory
	mu      sync.Mutex
	lookups int
	batches int
}

func (c *countingTable) Lookup(ctx context.Context, key string) (*table.Collection, error) {
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
	return c.Memory.Lookup(ctx, key)
}

func (c *countingTable) LookupBatch(ctx context.Context, keys []string) (map[string]*table.Collection, error) {
	c.mu.Lock()
	c.batches++
	c.mu.Unlock()
	return c.Memory.LookupBatch(ctx, keys)
}

// lookupOnly hides the Batcher implementation of Memory.
type lookupOnly struct {
	table.PhraseTable
}

func expectInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		_, ok := r.(*InvariantError)
		require.True(t, ok, "expected *InvariantError, got %T", r)
	}()
	fn()
}
