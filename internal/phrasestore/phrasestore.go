// Package phrasestore keeps a phrase table in Redis. Each source phrase is a
// hash whose fields are target phrases and whose values hold the scores and
// alignment; a set indexes every stored source phrase.
package phrasestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"transopt/internal/phrase"
	"transopt/internal/table"
)

// ErrInvalidPhrase is returned for empty source or target phrases.
var ErrInvalidPhrase = errors.New("phrasestore: empty phrase")

// Store wraps a Redis client to serve a phrase table.
type Store struct {
	client redis.UniversalClient
	prefix string
	layout table.Layout
}

// New creates a Store for the table described by layout.
func New(client redis.UniversalClient, layout table.Layout) *Store {
	return &Store{client: client, prefix: "phrasetable:" + layout.Name, layout: layout}
}

func (s *Store) Name() string         { return s.layout.Name }
func (s *Store) InputFactors() []int  { return s.layout.InputFactors }
func (s *Store) OutputFactors() []int { return s.layout.OutputFactors }
func (s *Store) TableLimit() int      { return s.layout.TableLimit }

func (s *Store) hashKey(src string) string { return s.prefix + ":src:" + src }
func (s *Store) indexKey() string          { return s.prefix + ":sources" }

func normalize(p string, factors []int) string {
	return phrase.ParsePhraseFactors(p, factors).Key(factors)
}

// Add inserts or replaces a phrase pair.
func (s *Store) Add(ctx context.Context, src, tgt string, probs []float64, align string) error {
	src = normalize(src, s.layout.InputFactors)
	tgt = normalize(tgt, s.layout.OutputFactors)
	if src == "" || tgt == "" {
		return ErrInvalidPhrase
	}
	ps := make([]string, len(probs))
	for i, p := range probs {
		ps[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	value := strings.Join(ps, " ")
	if align != "" {
		value += " " + table.FieldSeparator + " " + align
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.hashKey(src), tgt, value)
		p.SAdd(ctx, s.indexKey(), src)
		return nil
	})
	return err
}

// removeScript deletes one target and unindexes the source once its hash
// is empty, atomically with respect to concurrent Adds.
var removeScript = redis.NewScript(`
redis.call("HDEL", KEYS[1], ARGV[1])
if redis.call("HLEN", KEYS[1]) == 0 then
  redis.call("SREM", KEYS[2], ARGV[2])
end
return 0
`)

// Remove deletes a phrase pair; the source is unindexed once it has no
// targets left.
func (s *Store) Remove(ctx context.Context, src, tgt string) error {
	src = normalize(src, s.layout.InputFactors)
	tgt = normalize(tgt, s.layout.OutputFactors)
	return removeScript.Run(ctx, s.client, []string{s.hashKey(src), s.indexKey()}, tgt, src).Err()
}

// Sources returns all stored source phrases.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, s.indexKey()).Result()
}

func (s *Store) Lookup(ctx context.Context, key string) (*table.Collection, error) {
	h, err := s.client.HGetAll(ctx, s.hashKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("phrasestore %s: lookup %q: %w", s.layout.Name, key, err)
	}
	return decodeHash(s.layout, key, h)
}

// LookupBatch fetches every key in one pipelined round trip.
func (s *Store) LookupBatch(ctx context.Context, keys []string) (map[string]*table.Collection, error) {
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HGetAll(ctx, s.hashKey(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("phrasestore %s: batch of %d: %w", s.layout.Name, len(keys), err)
	}
	out := make(map[string]*table.Collection, len(keys))
	for i, k := range keys {
		c, err := decodeHash(s.layout, k, cmds[i].Val())
		if err != nil {
			return nil, err
		}
		if c != nil {
			out[k] = c
		}
	}
	return out, nil
}

// decodeHash builds a sorted collection from a source hash. Fields are
// visited in sorted order so equal scores tie-break the same way every run.
func decodeHash(layout table.Layout, src string, h map[string]string) (*table.Collection, error) {
	if len(h) == 0 {
		return nil, nil
	}
	tgts := make([]string, 0, len(h))
	for t := range h {
		tgts = append(tgts, t)
	}
	sort.Strings(tgts)
	c := &table.Collection{}
	for _, t := range tgts {
		line := src + " " + table.FieldSeparator + " " + t + " " + table.FieldSeparator + " " + h[t]
		_, tp, _, err := table.ParsePhraseLine(layout, line)
		if err != nil {
			return nil, fmt.Errorf("phrasestore %s: entry %q -> %q: %w", layout.Name, src, t, err)
		}
		c.Add(tp)
	}
	c.Sort()
	return c, nil
}
