package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
defaults:
  query_timeout: 45s
  row_limit: 500
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Get("logging.level"))
	assert.Equal(t, 500, cfg.GetInt("defaults.row_limit", 0))
	assert.Equal(t, 45*time.Second, cfg.GetDuration("defaults.query_timeout", 0))

	// Unset keys take their documented defaults.
	assert.Equal(t, 25, cfg.GetInt("defaults.max_open_conns", 0))
	assert.Equal(t, 5, cfg.GetInt("defaults.max_idle_conns", 0))
}

func TestLoadFromFileRejectsBadValues(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "logging:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")

	_, err = LoadFromFile(writeConfig(t, "defaults:\n  query_timeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query_timeout")

	_, err = LoadFromFile(writeConfig(t, "defaults:\n  row_limit: -5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row_limit")
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestTypedGetters(t *testing.T) {
	cfg := New()
	cfg.Set("count", "17")
	cfg.Set("flag", "true")
	cfg.Set("garbage", "oops")

	assert.Equal(t, 17, cfg.GetInt("count", 3))
	assert.True(t, cfg.GetBool("flag", false))

	// Unset or unparsable values fall back to the provided default.
	assert.Equal(t, 3, cfg.GetInt("garbage", 3))
	assert.Equal(t, 3, cfg.GetInt("missing", 3))
	assert.False(t, cfg.GetBool("garbage", false))
	assert.Equal(t, 2*time.Second, cfg.GetDuration("missing", 2*time.Second))
}

func TestUpdateAndGetAll(t *testing.T) {
	cfg := New()
	cfg.Update(map[string]string{"a": "1", "b": "2"})

	all := cfg.GetAll()
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)

	// GetAll returns a copy, not the live map.
	all["a"] = "changed"
	assert.Equal(t, "1", cfg.Get("a"))
}
