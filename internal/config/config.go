// Package config loads application configuration from file and
// environment and initialises the global logger.
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
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Stats    StatsConfig    `yaml:"stats" mapstructure:"stats"`
	Envelope EnvelopeConfig `yaml:"envelope" mapstructure:"envelope"`
	IO       IOConfig       `yaml:"io" mapstructure:"io"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StatsConfig configures summary statistic defaults.
type StatsConfig struct {
	// Correction is the default edge-correction method.
	Correction string `yaml:"correction" mapstructure:"correction"`
	// GridSize is the number of radius samples of auto-generated grids.
	GridSize int `yaml:"grid_size" mapstructure:"grid_size"`
}

// EnvelopeConfig configures Monte Carlo envelope tests.
type EnvelopeConfig struct {
	NSim    int     `yaml:"n_sim" mapstructure:"n_sim"`
	Alpha   float64 `yaml:"alpha" mapstructure:"alpha"`
	Workers int     `yaml:"workers" mapstructure:"workers"`
	Global  bool    `yaml:"global" mapstructure:"global"`
}

// IOConfig configures point file reading and writing.
type IOConfig struct {
	// Delimiter separates CSV fields. A single character.
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	// NoData marks missing values in CSV input.
	NoData string `yaml:"no_data" mapstructure:"no_data"`
	// XColumn and YColumn name the coordinate columns.
	XColumn string `yaml:"x_column" mapstructure:"x_column"`
	YColumn string `yaml:"y_column" mapstructure:"y_column"`
	// IDColumn optionally names a point identifier column.
	IDColumn string `yaml:"id_column" mapstructure:"id_column"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("ppa")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/ppa")

	// Environment
	v.SetEnvPrefix("PPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.path", "ppa.db")
	v.SetDefault("stats.correction", "isotropic")
	v.SetDefault("stats.grid_size", 512)
	v.SetDefault("envelope.n_sim", 199)
	v.SetDefault("envelope.alpha", 0.05)
	v.SetDefault("envelope.workers", 0)
	v.SetDefault("io.delimiter", ";")
	v.SetDefault("io.no_data", "NA")
	v.SetDefault("io.x_column", "x")
	v.SetDefault("io.y_column", "y")
	v.SetDefault("server.port", 8080)

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
