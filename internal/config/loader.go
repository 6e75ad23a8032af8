package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	env "github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"authhandler/pkg/logging"
)

const (
	appDirName     = "authhandler"
	configFileName = "config.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "AUTHHANDLER_"
)

// DefaultConfigDir returns ~/.config/authhandler, honouring XDG_CONFIG_HOME.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(dir, appDirName), nil
}

// DefaultConfigPath returns the default config file.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file at path over the defaults, applies environment
// overrides and validates the result. An empty path uses DefaultConfigPath.
// Defaults place data files next to the config file.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	return load(path, os.Environ())
}

func load(path string, environ []string) (Config, error) {
	cfg := GetDefaultConfig(filepath.Dir(path))

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config file found at %s, using defaults", path)
	case err != nil:
		return Config{}, &ConfigurationError{FilePath: path, ErrorType: "io", Message: err.Error()}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &ConfigurationError{
				FilePath:  path,
				ErrorType: "parse",
				Message:   err.Error(),
				Suggestions: []string{
					"Check the YAML syntax",
					"Durations use Go syntax, for example 30m or 1h",
				},
			}
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	}

	if err := applyEnv(&cfg, environ); err != nil {
		return Config{}, &ConfigurationError{FilePath: path, ErrorType: "env", Message: err.Error()}
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, &ConfigurationError{
			FilePath:  path,
			ErrorType: "validation",
			Message:   err.Error(),
			Details:   validationDetails(err),
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config, environ []string) error {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
	})
}

// expandPaths resolves a leading ~ in file settings.
func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Wallet.Path,
		&c.Wallet.KeyFile,
		&c.Trust.RulesFile,
		&c.Trust.CAFile,
		&c.SSO.IdentitiesDir,
	} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
