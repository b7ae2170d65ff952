package phrasestore

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"transopt/internal/collection"
	"transopt/internal/decode"
	"transopt/internal/input"
	"transopt/internal/table"
)

var testLayout = table.Layout{Name: "tm", InputFactors: []int{0}, OutputFactors: []int{0}, TableLimit: 2}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, testLayout), m, client
}

// hgetallCounter counts HGETALL calls sent alone and pipelines carrying them.
type hgetallCounter struct {
	mu        sync.Mutex
	single    int
	pipelines int
}

func (h *hgetallCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *hgetallCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "hgetall" {
			h.mu.Lock()
			h.single++
			h.mu.Unlock()
		}
		return next(ctx, cmd)
	}
}

func (h *hgetallCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, c := range cmds {
			if c.Name() == "hgetall" {
				h.mu.Lock()
				h.pipelines++
				h.mu.Unlock()
				break
			}
		}
		return next(ctx, cmds)
	}
}

func TestDecodeHash(t *testing.T) {
	c, err := decodeHash(testLayout, "das haus", map[string]string{
		"the house": "0.4 ||| 0-0 1-1",
		"the home":  "0.6",
		"a house":   "0.4",
	})
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, "the home", c.Phrases[0].Words.String())
	// equal scores fall back to field order
	assert.Equal(t, "a house", c.Phrases[1].Words.String())
	assert.Equal(t, "the house", c.Phrases[2].Words.String())
	assert.InDelta(t, math.Log(0.6), c.Phrases[0].Score, 1e-9)
	assert.Len(t, c.Phrases[2].Alignment, 2)
}

func TestDecodeHashEmpty(t *testing.T) {
	c, err := decodeHash(testLayout, "x", nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeHashBadScore(t *testing.T) {
	_, err := decodeHash(testLayout, "x", map[string]string{"y": "abc"})
	assert.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	require.NoError(t, s.Add(ctx, "das  haus", "the house", []float64{0.5}, "0-0 1-1"))
	require.NoError(t, s.Add(ctx, "haus", "house", []float64{0.9}, ""))
	assert.ErrorIs(t, s.Add(ctx, " ", "x", []float64{1}, ""), ErrInvalidPhrase)

	srcs, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"das haus", "haus"}, srcs)

	c, err := s.Lookup(ctx, "das haus")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	assert.InDelta(t, math.Log(0.5), c.Phrases[0].Score, 1e-9)
	assert.Len(t, c.Phrases[0].Alignment, 2)

	got, err := s.LookupBatch(ctx, []string{"das haus", "haus", "katze"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "the house", got["das haus"].Phrases[0].Words.String())
	assert.NotContains(t, got, "katze")

	require.NoError(t, s.Remove(ctx, "haus", "house"))
	c, err = s.Lookup(ctx, "haus")
	require.NoError(t, err)
	assert.Nil(t, c)
	srcs, err = s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"das haus"}, srcs)
}

func TestRemoveKeepsSourceWithTargetsLeft(t *testing.T) {
	ctx := context.Background()
	s, m, _ := newTestStore(t)

	require.NoError(t, s.Add(ctx, "haus", "house", []float64{0.9}, ""))
	require.NoError(t, s.Add(ctx, "haus", "home", []float64{0.1}, ""))
	require.NoError(t, s.Remove(ctx, "haus", "house"))

	ok, err := m.SIsMember("phrasetable:tm:sources", "haus")
	require.NoError(t, err)
	assert.True(t, ok)
	fields, err := m.HKeys("phrasetable:tm:src:haus")
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, fields)

	// removing an absent pair is a no-op
	require.NoError(t, s.Remove(ctx, "haus", "house"))
	require.NoError(t, s.Remove(ctx, "katze", "cat"))
	srcs, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"haus"}, srcs)
}

func TestRemoveRacingAddKeepsIndex(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < 200; i++ {
			if err := s.Add(ctx, "haus", "house", []float64{0.9}, ""); err != nil {
				return err
			}
			if err := s.Remove(ctx, "haus", "house"); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < 200; i++ {
			if err := s.Add(ctx, "haus", "home", []float64{0.1}, ""); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	c, err := s.Lookup(ctx, "haus")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	srcs, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"haus"}, srcs)
}

func TestLookupBatchError(t *testing.T) {
	s, m, _ := newTestStore(t)
	m.SetError("ERR backend unavailable")
	_, err := s.LookupBatch(context.Background(), []string{"haus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phrasestore tm")
}

func TestCollectionPrefetchesFromRedis(t *testing.T) {
	ctx := context.Background()
	s, _, client := newTestStore(t)
	require.NoError(t, s.Add(ctx, "das", "the", []float64{0.8}, "0-0"))
	require.NoError(t, s.Add(ctx, "haus", "house", []float64{0.9}, "0-0"))
	require.NoError(t, s.Add(ctx, "das haus", "the house", []float64{0.5}, "0-0 1-1"))

	hook := &hgetallCounter{}
	client.AddHook(hook)

	g, err := decode.NewGraph(0, decode.LookupStep{Table: s})
	require.NoError(t, err)
	c, err := collection.New(input.Parse("s1", "das haus katze"), &collection.Models{Graphs: []*decode.Graph{g}})
	require.NoError(t, err)
	require.NoError(t, c.Build(ctx))

	assert.Equal(t, 1, hook.pipelines)
	assert.Equal(t, 0, hook.single)

	var targets []string
	for _, span := range [][2]int{{0, 0}, {0, 1}, {1, 1}} {
		l, ok := c.List(span[0], span[1])
		require.True(t, ok)
		require.Equal(t, 1, l.Len())
		targets = append(targets, l.At(0).Target.String())
	}
	assert.Equal(t, []string{"the", "the house", "house"}, targets)

	var unknown []string
	for _, p := range c.UnknownSources() {
		unknown = append(unknown, p.String())
	}
	assert.Equal(t, []string{"katze"}, unknown)
}

func TestCollectionSurfacesRedisFailure(t *testing.T) {
	s, m, _ := newTestStore(t)
	m.SetError("ERR backend unavailable")

	g, err := decode.NewGraph(0, decode.LookupStep{Table: s})
	require.NoError(t, err)
	c, err := collection.New(input.Parse("s1", "das haus"), &collection.Models{Graphs: []*decode.Graph{g}})
	require.NoError(t, err)
	err = c.Build(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "backend unavailable"), "got %v", err)
}
