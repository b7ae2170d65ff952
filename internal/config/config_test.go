package config

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transopt/internal/collection"
	"transopt/internal/decode"
	"transopt/internal/input"
	"transopt/internal/xmlopt"
	"transopt/pkg/options"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleConfig = `
collection:
  max_phrase_length: 3
  max_options_per_span: 10
  threshold: -50
  drop_unknown: true
  xml_input: exclusive
tables:
  - name: tm
    kind: phrase
    source: file
    path: PHRASES
    input_factors: [0]
    output_factors: [0]
    table_limit: 5
  - name: gen
    kind: generation
    source: memory
    input_factors: [0]
    output_factors: [1]
  - name: backup
    kind: phrase
    source: memory
    input_factors: [0]
    output_factors: [0]
graphs:
  - steps: ["lookup:tm", "generate:gen"]
  - steps: ["lookup:backup"]
    backoff: 1
features:
  word_penalty: true
  phrase_penalty: true
  source_copy: true
  reordering:
    - name: lr
      path: REORDERING
weights:
  tm: [0.5]
logging:
  level: debug
`

func loadSample(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	phrases := writeFile(t, dir, "phrase-table", "das Haus ||| the house ||| 0.8 ||| 0-0 1-1\nHaus ||| house ||| 0.5\n")
	reordering := writeFile(t, dir, "reordering-table", "Haus ||| house ||| 0.5 0.25 0.25\n")
	doc := strings.NewReplacer("PHRASES", phrases, "REORDERING", reordering).Replace(sampleConfig)
	cfg, err := Load(writeFile(t, dir, "transopt.yaml", doc))
	require.NoError(t, err)
	return cfg
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "HTTP_ADDR", "TRANSOPT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, math.IsInf(cfg.Collection.Threshold, -1))
	assert.Equal(t, "off", cfg.Collection.XMLInput)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "collection: [unclosed\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadKeepsDefaultsForAbsentKeys(t *testing.T) {
	clearEnv(t)
	cfg := loadSample(t)
	assert.Equal(t, 3, cfg.Collection.MaxPhraseLength)
	assert.Equal(t, -50.0, cfg.Collection.Threshold)
	assert.Equal(t, options.DefaultOptions.MaxPartialOptions, cfg.Collection.MaxPartialOptions)
	assert.True(t, cfg.Collection.CacheLexReordering)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("TRANSOPT_LOG_LEVEL", "warn")

	cfg := loadSample(t)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)

	t.Setenv("REDIS_DB", "not-a-number")
	cfg = loadSample(t)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestOptions(t *testing.T) {
	cfg := loadSample(t)
	o := options.Resolve(cfg.Options()...)
	assert.Equal(t, 3, o.MaxPhraseLength)
	assert.Equal(t, 10, o.MaxOptionsPerSpan)
	assert.Equal(t, -50.0, o.Threshold)
	assert.True(t, o.DropUnknown)
	assert.False(t, o.AlwaysCreateDirect)
	assert.Equal(t, xmlopt.ModeExclusive, o.XMLMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		target error
	}{
		{"unknown table", func(c *Config) { c.Graphs[1].Steps = []string{"lookup:nope"} }, ErrUnknownTable},
		{"generate first", func(c *Config) { c.Graphs[0].Steps = []string{"generate:gen"} }, ErrInvalid},
		{"kind mismatch", func(c *Config) { c.Graphs[0].Steps = []string{"lookup:gen"} }, ErrInvalid},
		{"bad step", func(c *Config) { c.Graphs[0].Steps = []string{"tm"} }, ErrInvalid},
		{"bad operation", func(c *Config) { c.Graphs[0].Steps = []string{"translate:tm"} }, ErrInvalid},
		{"no graphs", func(c *Config) { c.Graphs = nil }, ErrInvalid},
		{"negative backoff", func(c *Config) { c.Graphs[1].Backoff = -1 }, ErrInvalid},
		{"zero phrase length", func(c *Config) { c.Collection.MaxPhraseLength = 0 }, ErrInvalid},
		{"bad xml mode", func(c *Config) { c.Collection.XMLInput = "sometimes" }, ErrInvalid},
		{"duplicate table", func(c *Config) { c.Tables = append(c.Tables, c.Tables[0]) }, ErrInvalid},
		{"redis generation", func(c *Config) { c.Tables[1].Source = SourceRedis }, ErrInvalid},
		{"file without path", func(c *Config) { c.Tables[0].Path = "" }, ErrInvalid},
		{"unknown source", func(c *Config) { c.Tables[0].Source = "ftp" }, ErrInvalid},
		{"no factors", func(c *Config) { c.Tables[0].InputFactors = nil }, ErrInvalid},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadSample(t)
			require.NoError(t, cfg.Validate())
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestAssemble(t *testing.T) {
	cfg := loadSample(t)
	res, err := cfg.Assemble(nil, nil)
	require.NoError(t, err)
	defer res.Close()

	assert.Nil(t, res.Redis)
	assert.Empty(t, res.Stores)
	require.Len(t, res.Models.Graphs, 2)
	assert.Equal(t, "lookup:tm -> generate:gen", res.Models.Graphs[0].String())
	assert.Equal(t, 1, res.Models.Graphs[1].Backoff)
	assert.IsType(t, decode.GenerateStep{}, res.Models.Graphs[0].Steps[1])
	assert.Len(t, res.Models.Isolation, 2)
	assert.Len(t, res.Models.Contextual, 1)
	require.Len(t, res.Models.Reordering, 1)
	assert.Equal(t, []float64{0.5}, res.Models.Weights["tm"])

	require.Contains(t, res.Memory, "tm")
	assert.Equal(t, 2, res.Memory["tm"].Size())
	assert.Contains(t, res.Memory, "backup")

	// the backup table can be seeded after assembly
	res.Memory["backup"].Finalize()
	c, err := collection.New(input.Parse("s", "das Haus"), res.Models, cfg.Options()...)
	require.NoError(t, err)
	require.NoError(t, c.Build(context.Background()))
	assert.Equal(t, 2, c.Size())
}

func TestAssembleMissingTableFile(t *testing.T) {
	cfg := loadSample(t)
	cfg.Tables[0].Path = filepath.Join(t.TempDir(), "missing")
	_, err := cfg.Assemble(nil, nil)
	assert.Error(t, err)
}

func TestAssembleRedisTableCreatesClient(t *testing.T) {
	cfg := loadSample(t)
	cfg.Tables[2].Source = SourceRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	res, err := cfg.Assemble(nil, nil)
	require.NoError(t, err)
	defer res.Close()

	require.NotNil(t, res.Redis)
	require.Contains(t, res.Stores, "backup")
	assert.Equal(t, "backup", res.Stores["backup"].Name())
}
