// Package config reads the YAML configuration of the option builder and
// assembles the tables, decode graphs and features it names.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"transopt/internal/logging"
	"transopt/internal/xmlopt"
	"transopt/pkg/options"
)

var (
	ErrUnknownTable = errors.New("config: unknown table")
	ErrInvalid      = errors.New("config: invalid")
)

// Table kinds and sources.
const (
	KindPhrase     = "phrase"
	KindGeneration = "generation"

	SourceFile   = "file"
	SourceMemory = "memory"
	SourceRedis  = "redis"
)

// Config is the root configuration document.
type Config struct {
	Collection CollectionConfig     `yaml:"collection"`
	Tables     []TableConfig        `yaml:"tables"`
	Graphs     []GraphConfig        `yaml:"graphs"`
	Features   FeaturesConfig       `yaml:"features"`
	Weights    map[string][]float64 `yaml:"weights"`
	Redis      RedisConfig          `yaml:"redis"`
	Logging    LoggingConfig        `yaml:"logging"`
	HTTP       HTTPConfig           `yaml:"http"`
}

// CollectionConfig holds the per-sentence limits.
type CollectionConfig struct {
	MaxPhraseLength    int     `yaml:"max_phrase_length"`
	MaxOptionsPerSpan  int     `yaml:"max_options_per_span"`
	Threshold          float64 `yaml:"threshold"` // log domain, -.inf disables
	MaxPartialOptions  int     `yaml:"max_partial_options"`
	DropUnknown        bool    `yaml:"drop_unknown"`
	AlwaysCreateDirect bool    `yaml:"always_create_direct"`
	CacheLexReordering bool    `yaml:"cache_lex_reordering"`
	XMLInput           string  `yaml:"xml_input"` // off, pass-through, inclusive, exclusive, constraint
}

// TableConfig declares one phrase or generation table.
type TableConfig struct {
	Name          string `yaml:"name"`
	Kind          string `yaml:"kind"`   // phrase, generation
	Source        string `yaml:"source"` // file, memory, redis
	Path          string `yaml:"path"`
	InputFactors  []int  `yaml:"input_factors"`
	OutputFactors []int  `yaml:"output_factors"`
	TableLimit    int    `yaml:"table_limit"`
	Feature       string `yaml:"feature"`
}

// GraphConfig is one decode graph: "lookup:<table>" or "generate:<table>"
// steps in order.
type GraphConfig struct {
	Steps   []string `yaml:"steps"`
	Backoff int      `yaml:"backoff"`
}

type FeaturesConfig struct {
	WordPenalty   bool               `yaml:"word_penalty"`
	PhrasePenalty bool               `yaml:"phrase_penalty"`
	SourceCopy    bool               `yaml:"source_copy"`
	Reordering    []ReorderingConfig `yaml:"reordering"`
}

type ReorderingConfig struct {
	Name          string `yaml:"name"`
	Path          string `yaml:"path"`
	InputFactors  []int  `yaml:"input_factors"`
	OutputFactors []int  `yaml:"output_factors"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used for absent settings.
func DefaultConfig() *Config {
	d := options.DefaultOptions
	return &Config{
		Collection: CollectionConfig{
			MaxPhraseLength:    d.MaxPhraseLength,
			MaxOptionsPerSpan:  d.MaxOptionsPerSpan,
			Threshold:          d.Threshold,
			MaxPartialOptions:  d.MaxPartialOptions,
			DropUnknown:        d.DropUnknown,
			AlwaysCreateDirect: d.AlwaysCreateDirect,
			CacheLexReordering: d.CacheLexReordering,
			XMLInput:           d.XMLMode.String(),
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Redis.Addr = getenv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getenv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.HTTP.Addr = getenv("HTTP_ADDR", c.HTTP.Addr)
	c.Logging.Level = getenv("TRANSOPT_LOG_LEVEL", c.Logging.Level)
}

// Validate checks the document without touching any table.
func (c *Config) Validate() error {
	cc := c.Collection
	if cc.MaxPhraseLength < 1 {
		return fmt.Errorf("%w: max_phrase_length must be positive", ErrInvalid)
	}
	if cc.MaxOptionsPerSpan < 0 || cc.MaxPartialOptions < 0 {
		return fmt.Errorf("%w: negative option limit", ErrInvalid)
	}
	if math.IsNaN(cc.Threshold) {
		return fmt.Errorf("%w: threshold is NaN", ErrInvalid)
	}
	if _, err := xmlopt.ParseMode(cc.XMLInput); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	kinds := make(map[string]string, len(c.Tables))
	for _, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("%w: table without a name", ErrInvalid)
		}
		if _, dup := kinds[t.Name]; dup {
			return fmt.Errorf("%w: duplicate table %q", ErrInvalid, t.Name)
		}
		switch t.Kind {
		case KindPhrase, KindGeneration:
		default:
			return fmt.Errorf("%w: table %q: unknown kind %q", ErrInvalid, t.Name, t.Kind)
		}
		switch t.Source {
		case SourceFile:
			if t.Path == "" {
				return fmt.Errorf("%w: table %q: path is required", ErrInvalid, t.Name)
			}
		case SourceMemory:
		case SourceRedis:
			if t.Kind != KindPhrase {
				return fmt.Errorf("%w: table %q: only phrase tables can live in redis", ErrInvalid, t.Name)
			}
		default:
			return fmt.Errorf("%w: table %q: unknown source %q", ErrInvalid, t.Name, t.Source)
		}
		if len(t.InputFactors) == 0 || len(t.OutputFactors) == 0 {
			return fmt.Errorf("%w: table %q: factors are required", ErrInvalid, t.Name)
		}
		kinds[t.Name] = t.Kind
	}

	if len(c.Graphs) == 0 {
		return fmt.Errorf("%w: no decode graph", ErrInvalid)
	}
	for i, g := range c.Graphs {
		if len(g.Steps) == 0 {
			return fmt.Errorf("%w: graph %d has no steps", ErrInvalid, i)
		}
		if g.Backoff < 0 {
			return fmt.Errorf("%w: graph %d: negative backoff", ErrInvalid, i)
		}
		for j, s := range g.Steps {
			kind, name, err := parseStep(s)
			if err != nil {
				return fmt.Errorf("graph %d: %w", i, err)
			}
			if j == 0 && kind != KindPhrase {
				return fmt.Errorf("%w: graph %d must start with a lookup", ErrInvalid, i)
			}
			have, ok := kinds[name]
			if !ok {
				return fmt.Errorf("graph %d: %w %q", i, ErrUnknownTable, name)
			}
			if have != kind {
				return fmt.Errorf("%w: graph %d: step %q uses a %s table", ErrInvalid, i, s, have)
			}
		}
	}

	for _, r := range c.Features.Reordering {
		if r.Name == "" || r.Path == "" {
			return fmt.Errorf("%w: reordering model needs name and path", ErrInvalid)
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// parseStep splits "lookup:tm" into the table kind it needs and the name.
func parseStep(s string) (kind, name string, err error) {
	op, name, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: step %q, want lookup:<table> or generate:<table>", ErrInvalid, s)
	}
	switch op {
	case "lookup":
		return KindPhrase, name, nil
	case "generate":
		return KindGeneration, name, nil
	}
	return "", "", fmt.Errorf("%w: step %q: unknown operation %q", ErrInvalid, s, op)
}

// Options converts the collection section into functional options.
func (c *Config) Options() []options.Options {
	cc := c.Collection
	mode, _ := xmlopt.ParseMode(cc.XMLInput)
	opts := []options.Options{
		options.WithMaxPhraseLength(cc.MaxPhraseLength),
		options.WithMaxOptionsPerSpan(cc.MaxOptionsPerSpan),
		options.WithThreshold(cc.Threshold),
		options.WithMaxPartialOptions(cc.MaxPartialOptions),
		options.WithLexReorderingCache(cc.CacheLexReordering),
		options.WithXMLMode(mode),
	}
	if cc.DropUnknown {
		opts = append(opts, options.WithDropUnknown())
	}
	if cc.AlwaysCreateDirect {
		opts = append(opts, options.WithAlwaysCreateDirect())
	}
	return opts
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}
