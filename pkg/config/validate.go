package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Validate checks the configuration for errors. It is called after defaults
// are applied, so zero values for defaulted fields never reach it.
func Validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Profiles))
	for i, p := range cfg.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profiles[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("profiles[%d]: duplicate profile name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.MonthlyBudget != "" {
			if _, err := decimal.NewFromString(p.MonthlyBudget); err != nil {
				return fmt.Errorf("profiles[%d]: invalid monthly_budget %q: %w", i, p.MonthlyBudget, err)
			}
		}
		if p.AlertThreshold < 0 || p.AlertThreshold > 1 {
			return fmt.Errorf("profiles[%d]: alert_threshold must be in (0, 1], got %g", i, p.AlertThreshold)
		}
		if p.RefreshInterval < time.Minute {
			return fmt.Errorf("profiles[%d]: refresh_interval must be at least 1m, got %s", i, p.RefreshInterval)
		}
	}

	if cfg.Refresh.Interval < time.Minute {
		return fmt.Errorf("refresh.interval must be at least 1m, got %s", cfg.Refresh.Interval)
	}
	if cfg.Refresh.MinCallSpacing <= 0 {
		return fmt.Errorf("refresh.min_call_spacing must be positive, got %s", cfg.Refresh.MinCallSpacing)
	}
	if cfg.Refresh.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("refresh.max_consecutive_failures must be at least 1, got %d", cfg.Refresh.MaxConsecutiveFailures)
	}
	if cfg.Refresh.SelectedProfile != "" && len(cfg.Profiles) > 0 && !seen[cfg.Refresh.SelectedProfile] {
		return fmt.Errorf("refresh.selected_profile %q is not a configured profile", cfg.Refresh.SelectedProfile)
	}
	if cfg.Refresh.Retry.MaxRetries < 0 {
		return fmt.Errorf("refresh.retry.max_retries must not be negative, got %d", cfg.Refresh.Retry.MaxRetries)
	}
	if cfg.Refresh.Retry.Multiplier < 1 {
		return fmt.Errorf("refresh.retry.multiplier must be at least 1, got %g", cfg.Refresh.Retry.Multiplier)
	}

	if cfg.TeamCache.Enabled && cfg.TeamCache.Bucket == "" {
		return fmt.Errorf("team_cache.bucket is required when team_cache.enabled is true")
	}
	if cfg.TeamCache.TTL <= 0 {
		return fmt.Errorf("team_cache.ttl must be positive, got %s", cfg.TeamCache.TTL)
	}

	if cfg.Anomaly.ThresholdPercent <= 0 {
		return fmt.Errorf("anomaly.threshold_percent must be positive, got %g", cfg.Anomaly.ThresholdPercent)
	}

	switch cfg.Storage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.backend must be \"sqlite\" or \"memory\", got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the sqlite backend")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics.listen_address is required when metrics are enabled")
	}
	return nil
}
