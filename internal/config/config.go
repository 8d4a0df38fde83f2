// Package config loads application configuration from config.yaml and
// DESTINOS_-prefixed environment variables, and owns global logger setup.
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
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	OSRM      OSRMConfig      `yaml:"osrm" mapstructure:"osrm"`
	Distance  DistanceConfig  `yaml:"distance" mapstructure:"distance"`
	Rank      RankConfig      `yaml:"rank" mapstructure:"rank"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the sqlite store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// NominatimConfig holds geocoding service settings. UserAgent is required
// by the Nominatim usage policy and identifies this application.
type NominatimConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Region        string `yaml:"region" mapstructure:"region"`
}

// OSRMConfig holds routing service settings.
type OSRMConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts   int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// DistanceConfig configures the distance resolver fallback. RoadFactor
// multiplies the geodesic fallback to approximate road distance when
// routing is unavailable; 1.0 disables the correction.
type DistanceConfig struct {
	RoadFactor float64 `yaml:"road_factor" mapstructure:"road_factor"`
}

// RankConfig configures the assignment engine.
type RankConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// IngestConfig configures CSV ingestion.
type IngestConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DESTINOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "data/destinos.db")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "destinos-cli/1.0 (destinos-interinos)")
	v.SetDefault("nominatim.rate_per_minute", 60)
	v.SetDefault("nominatim.timeout_secs", 10)
	v.SetDefault("nominatim.region", "Andalucía")
	v.SetDefault("osrm.base_url", "https://router.project-osrm.org/route/v1")
	v.SetDefault("osrm.rate_per_minute", 60)
	v.SetDefault("osrm.timeout_secs", 10)
	v.SetDefault("osrm.max_attempts", 3)
	v.SetDefault("distance.road_factor", 1.3)
	v.SetDefault("rank.workers", 4)
	v.SetDefault("ingest.data_dir", "data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
