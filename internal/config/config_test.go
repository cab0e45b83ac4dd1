package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no ppa.yaml is found.
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "ppa.db", cfg.Store.Path)
	assert.Equal(t, "isotropic", cfg.Stats.Correction)
	assert.Equal(t, 512, cfg.Stats.GridSize)
	assert.Equal(t, 199, cfg.Envelope.NSim)
	assert.InDelta(t, 0.05, cfg.Envelope.Alpha, 0.001)
	assert.Equal(t, 0, cfg.Envelope.Workers)
	assert.Equal(t, ";", cfg.IO.Delimiter)
	assert.Equal(t, "NA", cfg.IO.NoData)
	assert.Equal(t, "x", cfg.IO.XColumn)
	assert.Equal(t, "y", cfg.IO.YColumn)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
log:
  level: debug
store:
  path: /tmp/runs.db
stats:
  correction: translation
  grid_size: 128
envelope:
  n_sim: 999
  global: true
io:
  delimiter: ","
  id_column: id
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ppa.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
	assert.Equal(t, "translation", cfg.Stats.Correction)
	assert.Equal(t, 128, cfg.Stats.GridSize)
	assert.Equal(t, 999, cfg.Envelope.NSim)
	assert.True(t, cfg.Envelope.Global)
	assert.Equal(t, ",", cfg.IO.Delimiter)
	assert.Equal(t, "id", cfg.IO.IDColumn)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 0.05, cfg.Envelope.Alpha, 0.001)
	assert.Equal(t, "NA", cfg.IO.NoData)
}

func TestLoadFromEnv(t *testing.T) {
	chtemp(t)
	t.Setenv("PPA_STATS_CORRECTION", "border")
	t.Setenv("PPA_ENVELOPE_N_SIM", "49")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "border", cfg.Stats.Correction)
	assert.Equal(t, 49, cfg.Envelope.NSim)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "bogus", Format: "json"})
	assert.Error(t, err)
}
