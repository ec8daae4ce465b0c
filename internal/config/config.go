// Package config loads service settings from the environment and batch
// jobs from YAML files.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"go.ngs.io/regrid/internal/domain"
)

// Config holds the service settings.
type Config struct {
	Port               string
	GridDir            string
	CORSAllowedOrigins []string // Empty allows all origins.
	LogLevel           string
	Workers            int
	MissingValue       float64
	Subgrid            int
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("grid_dir", "./data/grids")
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("workers", runtime.GOMAXPROCS(0))
	v.SetDefault("missing_value", domain.DefaultMissingValue)
	v.SetDefault("subgrid", 10)
	v.AutomaticEnv()

	cfg := &Config{
		Port:         v.GetString("port"),
		GridDir:      v.GetString("grid_dir"),
		LogLevel:     v.GetString("log_level"),
		Workers:      v.GetInt("workers"),
		MissingValue: v.GetFloat64("missing_value"),
		Subgrid:      v.GetInt("subgrid"),
	}
	for _, o := range strings.Split(v.GetString("cors_allowed_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.Subgrid < 1 {
		return fmt.Errorf("SUBGRID must be positive, got %d", c.Subgrid)
	}
	return nil
}

// NewLogger returns a text logger writing to stderr at the given level.
func NewLogger(level string) (*logrus.Logger, error) {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}
