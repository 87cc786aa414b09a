package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/gospectral/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) (dir string) {
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Name+".yaml"), []byte(body), 0o644))
	return
}

func TestLoadLayering(t *testing.T) {
	var (
		first = writeConfig(t, `
transform:
  planner_effort: measure
log:
  level: debug
  format: json
`)
		second = writeConfig(t, `
log:
  level: error
`)
		empty = t.TempDir()
	)
	cfg, err := Load(empty)
	require.NoError(t, err)
	assert.Equal(t, transform.Estimate, cfg.Transform.Effort)
	assert.Equal(t, slog.LevelWarn, cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	cfg, err = Load(first, empty, second)
	require.NoError(t, err)
	assert.Equal(t, transform.Measure, cfg.Transform.Effort)
	assert.Equal(t, slog.LevelError, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Setenv("GOSPECTRAL_LOG_LEVEL", "info")
	cfg, err = Load(first, second)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.Error(t, err)
	_, err = Load(writeConfig(t, "log:\n  format: xml\n"))
	assert.Error(t, err)
	_, err = Load(writeConfig(t, "transform:\n  planner_effort: exhaustive\n"))
	assert.Error(t, err)
	_, err = Load(writeConfig(t, "log: [unclosed\n"))
	assert.Error(t, err)
}
