package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// COSTWATCH_SECTION_FIELD (e.g., COSTWATCH_REFRESH_INTERVAL) and always take
// precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Refresh overrides
	if val := os.Getenv("COSTWATCH_REFRESH_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Refresh.Interval = d
		}
	}
	if val := os.Getenv("COSTWATCH_REFRESH_MIN_CALL_SPACING"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Refresh.MinCallSpacing = d
		}
	}
	if val := os.Getenv("COSTWATCH_REFRESH_SELECTED_PROFILE"); val != "" {
		cfg.Refresh.SelectedProfile = val
	}

	// Team cache overrides
	if val := os.Getenv("COSTWATCH_TEAM_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.TeamCache.Enabled = b
		}
	}
	if val := os.Getenv("COSTWATCH_TEAM_CACHE_BUCKET"); val != "" {
		cfg.TeamCache.Bucket = val
	}
	if val := os.Getenv("COSTWATCH_TEAM_CACHE_REGION"); val != "" {
		cfg.TeamCache.Region = val
	}
	if val := os.Getenv("COSTWATCH_TEAM_CACHE_PREFIX"); val != "" {
		cfg.TeamCache.Prefix = val
	}

	// Storage overrides
	if val := os.Getenv("COSTWATCH_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("COSTWATCH_STORAGE_PATH"); val != "" {
		cfg.Storage.Path = val
	}

	// Logging overrides
	if val := os.Getenv("COSTWATCH_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("COSTWATCH_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Metrics overrides
	if val := os.Getenv("COSTWATCH_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("COSTWATCH_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Metrics.ListenAddress = val
	}
}
