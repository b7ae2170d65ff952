package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("TRANSOPT_LOG_LEVEL", "")
	t.Setenv("HTTP_ADDR", "")
	dir := t.TempDir()

	cfg, logger, err := loadConfig(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("collection: [unclosed\n"), 0o644))
	_, _, err = loadConfig(bad)
	assert.Error(t, err)

	loud := filepath.Join(dir, "loud.yaml")
	require.NoError(t, os.WriteFile(loud, []byte("logging:\n  level: loud\n"), 0o644))
	_, _, err = loadConfig(loud)
	assert.Error(t, err)
}
