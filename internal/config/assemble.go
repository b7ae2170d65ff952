package config

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"transopt/internal/collection"
	"transopt/internal/decode"
	"transopt/internal/feature"
	"transopt/internal/phrasestore"
	"transopt/internal/scoring"
	"transopt/internal/table"
)

// Resources are the loaded models plus the handles that outlive a sentence.
type Resources struct {
	Models *collection.Models
	// Stores are the Redis backed phrase tables by name.
	Stores map[string]*phrasestore.Store
	// Memory are the in-memory phrase tables by name, for seeding.
	Memory map[string]*table.Memory
	// Redis is nil unless a table lives in Redis.
	Redis redis.UniversalClient
}

// Close releases the Redis client, if any.
func (r *Resources) Close() error {
	if r.Redis == nil {
		return nil
	}
	return r.Redis.Close()
}

// NewRedisClient connects to the configured Redis server.
func (c *Config) NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// Assemble validates the configuration and loads every table, graph and
// feature it names. client is used for Redis tables; when nil and one is
// needed a client is created from the redis section.
func (c *Config) Assemble(client redis.UniversalClient, logger *zap.Logger) (*Resources, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	weights := scoring.Weights(c.Weights)
	res := &Resources{
		Models: &collection.Models{Weights: weights},
		Stores: make(map[string]*phrasestore.Store),
		Memory: make(map[string]*table.Memory),
	}

	phraseTables := make(map[string]table.PhraseTable)
	genTables := make(map[string]table.GenerationTable)
	for _, tc := range c.Tables {
		layout := table.Layout{
			Name:          tc.Name,
			InputFactors:  tc.InputFactors,
			OutputFactors: tc.OutputFactors,
			TableLimit:    tc.TableLimit,
			Feature:       tc.Feature,
			Weights:       weights,
		}
		switch {
		case tc.Kind == KindPhrase && tc.Source == SourceFile:
			m, err := table.LoadPhraseTable(tc.Path, layout)
			if err != nil {
				return nil, err
			}
			phraseTables[tc.Name] = m
			res.Memory[tc.Name] = m
			logger.Info("loaded phrase table", zap.String("table", tc.Name), zap.String("path", tc.Path), zap.Int("sources", m.Size()))
		case tc.Kind == KindPhrase && tc.Source == SourceMemory:
			m := table.NewMemory(tc.Name, tc.InputFactors, tc.OutputFactors, tc.TableLimit)
			phraseTables[tc.Name] = m
			res.Memory[tc.Name] = m
		case tc.Kind == KindPhrase && tc.Source == SourceRedis:
			if client == nil {
				client = c.NewRedisClient()
				res.Redis = client
			}
			s := phrasestore.New(client, layout)
			phraseTables[tc.Name] = s
			res.Stores[tc.Name] = s
			logger.Info("using redis phrase table", zap.String("table", tc.Name), zap.String("addr", c.Redis.Addr))
		case tc.Kind == KindGeneration && tc.Source == SourceFile:
			g, err := table.LoadGenerationTable(tc.Path, layout)
			if err != nil {
				return nil, err
			}
			genTables[tc.Name] = g
			logger.Info("loaded generation table", zap.String("table", tc.Name), zap.String("path", tc.Path))
		case tc.Kind == KindGeneration && tc.Source == SourceMemory:
			genTables[tc.Name] = table.NewMemoryGeneration(tc.Name, tc.InputFactors, tc.OutputFactors)
		}
	}

	for i, gc := range c.Graphs {
		steps := make([]decode.Step, 0, len(gc.Steps))
		for _, s := range gc.Steps {
			kind, name, err := parseStep(s)
			if err != nil {
				return nil, err
			}
			if kind == KindPhrase {
				steps = append(steps, decode.LookupStep{Table: phraseTables[name]})
			} else {
				steps = append(steps, decode.GenerateStep{Table: genTables[name]})
			}
		}
		g, err := decode.NewGraph(gc.Backoff, steps...)
		if err != nil {
			return nil, fmt.Errorf("graph %d: %w", i, err)
		}
		res.Models.Graphs = append(res.Models.Graphs, g)
		logger.Debug("decode graph", zap.Int("graph", i), zap.Stringer("steps", g), zap.Int("backoff", g.Backoff))
	}

	f := c.Features
	if f.WordPenalty {
		res.Models.Isolation = append(res.Models.Isolation, feature.WordPenalty{})
	}
	if f.PhrasePenalty {
		res.Models.Isolation = append(res.Models.Isolation, feature.PhrasePenalty{})
	}
	if f.SourceCopy {
		res.Models.Contextual = append(res.Models.Contextual, feature.SourceCopy{})
	}
	for _, rc := range f.Reordering {
		in, out := rc.InputFactors, rc.OutputFactors
		if len(in) == 0 {
			in = []int{0}
		}
		if len(out) == 0 {
			out = []int{0}
		}
		lr, err := feature.LoadLexicalReordering(rc.Path, rc.Name, in, out)
		if err != nil {
			return nil, err
		}
		res.Models.Reordering = append(res.Models.Reordering, lr)
	}
	return res, nil
}
