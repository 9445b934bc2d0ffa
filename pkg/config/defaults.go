package config

import (
	"strings"

	"github.com/dochive/dochive/pkg/catalog"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced, explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	cfg.Engine.ApplyDefaults()
	cfg.API.ApplyDefaults()
	cfg.Database.ApplyDefaults()
	cfg.Migration.ApplyDefaults()
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// GetDefaultConfig returns a Config struct with all default values
// applied. Useful for generating sample configuration files and for
// tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: catalog.Config{
			Type: catalog.DatabaseTypeSQLite,
		},
	}
	cfg.Engine.RootPath = "/var/lib/dochive/blobs"

	ApplyDefaults(cfg)
	return cfg
}
