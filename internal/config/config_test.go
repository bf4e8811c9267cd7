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

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "riskindex.db", cfg.Store.SQLitePath)
	assert.Equal(t, 4, cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 45, cfg.Portfolio.StaleAfterDays)
	assert.Equal(t, 8, cfg.Portfolio.DeteriorationPoints)
	assert.InDelta(t, 0.80, cfg.Portfolio.HighImpactPercentile, 0.001)
	assert.Equal(t, 5, cfg.Rescore.Concurrency)
	assert.InDelta(t, 25.0, cfg.Rescore.RatePerSec, 0.001)
	assert.Equal(t, 25, cfg.Backtest.MinSample)
	assert.Equal(t, ".", cfg.Export.OutputDir)
	assert.Empty(t, cfg.Scoring.ConfigPath)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  sqlite_path: /tmp/scores.db
log:
  level: debug
  format: console
rescore:
  concurrency: 10
portfolio:
  stale_after_days: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/scores.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Rescore.Concurrency)
	assert.Equal(t, 30, cfg.Portfolio.StaleAfterDays)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Portfolio.DeteriorationPoints)
	assert.Equal(t, 25, cfg.Backtest.MinSample)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RISKINDEX_STORE_DRIVER", "postgres")
	t.Setenv("RISKINDEX_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("RISKINDEX_RESCORE_CONCURRENCY", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Rescore.Concurrency)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/riskindex"
	cfg.Rescore.Concurrency = 5
	cfg.Rescore.RatePerSec = 25
	cfg.Portfolio.StaleAfterDays = 45
	cfg.Portfolio.DeteriorationPoints = 8
	cfg.Portfolio.HighImpactPercentile = 0.80
	cfg.Backtest.MinSample = 25
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"score", "rescore", "portfolio", "backtest", "benchmark", "consistency", "migrate"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("score")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = ""

	err := cfg.Validate("score")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.sqlite_path is required")

	cfg.Store.SQLitePath = "scores.db"
	assert.NoError(t, cfg.Validate("score"))
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("score")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_RescoreBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Rescore.Concurrency = 0
	err := cfg.Validate("rescore")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rescore.concurrency must be between 1 and 50")

	cfg.Rescore.Concurrency = 51
	err = cfg.Validate("rescore")
	assert.Error(t, err)

	cfg.Rescore.Concurrency = 50
	assert.NoError(t, cfg.Validate("rescore"))

	cfg.Rescore.RatePerSec = 0
	err = cfg.Validate("rescore")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rescore.rate_per_sec must be > 0")
}

func TestValidate_PortfolioBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Portfolio.HighImpactPercentile = 1.5
	err := cfg.Validate("portfolio")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "high_impact_percentile")

	cfg.Portfolio.HighImpactPercentile = 0.8
	cfg.Portfolio.StaleAfterDays = 0
	err = cfg.Validate("portfolio")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stale_after_days")

	cfg.Portfolio.StaleAfterDays = 45
	cfg.Portfolio.DeteriorationPoints = 0
	err = cfg.Validate("portfolio")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "deterioration_points")
}

func TestValidate_BacktestBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Backtest.MinSample = 0

	err := cfg.Validate("backtest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backtest.min_sample must be >= 1")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
