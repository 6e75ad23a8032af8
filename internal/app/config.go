package app

import (
	"authhandler/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// ConfigPath is the configuration file. Empty uses config.DefaultConfigPath.
	ConfigPath string

	// Handler configuration, filled by NewApplication unless preset.
	Handler *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
