package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/destinos.db", cfg.Store.Path)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Nominatim.BaseURL)
	assert.Equal(t, 60, cfg.Nominatim.RatePerMinute)
	assert.Equal(t, 10, cfg.Nominatim.TimeoutSecs)
	assert.Equal(t, "Andalucía", cfg.Nominatim.Region)
	assert.NotEmpty(t, cfg.Nominatim.UserAgent)
	assert.Equal(t, "https://router.project-osrm.org/route/v1", cfg.OSRM.BaseURL)
	assert.Equal(t, 3, cfg.OSRM.MaxAttempts)
	assert.InDelta(t, 1.3, cfg.Distance.RoadFactor, 0.001)
	assert.Equal(t, 4, cfg.Rank.Workers)
	assert.Equal(t, "data", cfg.Ingest.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  path: /tmp/test.db
osrm:
  base_url: http://localhost:5000/route/v1
distance:
  road_factor: 1.0
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Store.Path)
	assert.Equal(t, "http://localhost:5000/route/v1", cfg.OSRM.BaseURL)
	assert.InDelta(t, 1.0, cfg.Distance.RoadFactor, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 60, cfg.Nominatim.RatePerMinute)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  path: /tmp/from-file.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("DESTINOS_STORE_PATH", "/tmp/from-env.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.db", cfg.Store.Path)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	assert.Error(t, err)
}
