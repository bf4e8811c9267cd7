package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Portfolio PortfolioConfig `yaml:"portfolio" mapstructure:"portfolio"`
	Rescore   RescoreConfig   `yaml:"rescore" mapstructure:"rescore"`
	Backtest  BacktestConfig  `yaml:"backtest" mapstructure:"backtest"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig configures the scoring engine.
type ScoringConfig struct {
	// ConfigPath points at an optional YAML overlay for the versioned
	// scoring constants. Empty means compiled-in defaults.
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// PortfolioConfig configures portfolio aggregation thresholds.
type PortfolioConfig struct {
	StaleAfterDays       int     `yaml:"stale_after_days" mapstructure:"stale_after_days"`
	DeteriorationPoints  int     `yaml:"deterioration_points" mapstructure:"deterioration_points"`
	HighImpactPercentile float64 `yaml:"high_impact_percentile" mapstructure:"high_impact_percentile"`
}

// RescoreConfig configures bulk rescoring.
type RescoreConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// BacktestConfig configures outcome backtesting.
type BacktestConfig struct {
	MinSample int `yaml:"min_sample" mapstructure:"min_sample"`
}

// ExportConfig configures file exports.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// Validate checks the configuration for the given command mode. Every mode
// touches the store; the remaining checks are mode-specific.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required")
		}
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}

	switch mode {
	case "score", "consistency", "migrate", "benchmark":
		// Store checks only.
	case "rescore":
		if c.Rescore.Concurrency < 1 || c.Rescore.Concurrency > 50 {
			errs = append(errs, "rescore.concurrency must be between 1 and 50")
		}
		if c.Rescore.RatePerSec <= 0 {
			errs = append(errs, "rescore.rate_per_sec must be > 0")
		}
	case "portfolio":
		if c.Portfolio.StaleAfterDays < 1 {
			errs = append(errs, "portfolio.stale_after_days must be >= 1")
		}
		if c.Portfolio.DeteriorationPoints < 1 {
			errs = append(errs, "portfolio.deterioration_points must be >= 1")
		}
		if c.Portfolio.HighImpactPercentile <= 0 || c.Portfolio.HighImpactPercentile > 1 {
			errs = append(errs, "portfolio.high_impact_percentile must be in (0, 1]")
		}
	case "backtest":
		if c.Backtest.MinSample < 1 {
			errs = append(errs, "backtest.min_sample must be >= 1")
		}
	default:
		errs = append(errs, "unknown mode "+mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RISKINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "riskindex.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("portfolio.stale_after_days", 45)
	v.SetDefault("portfolio.deterioration_points", 8)
	v.SetDefault("portfolio.high_impact_percentile", 0.80)
	v.SetDefault("rescore.concurrency", 5)
	v.SetDefault("rescore.rate_per_sec", 25.0)
	v.SetDefault("backtest.min_sample", 25)
	v.SetDefault("export.output_dir", ".")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
