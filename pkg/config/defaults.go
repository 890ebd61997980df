package config

import "time"

// Default values for configuration fields.
const (
	// Refresh defaults
	DefaultRefreshInterval        = 5 * time.Minute
	DefaultMinCallSpacing         = time.Minute
	DefaultMaxConsecutiveFailures = 3
	DefaultIdleThreshold          = 5 * time.Minute

	// Retry defaults
	DefaultRetryMaxRetries = 3
	DefaultRetryBaseDelay  = time.Second
	DefaultRetryMaxDelay   = 30 * time.Second
	DefaultRetryMultiplier = 2.0

	// Team cache defaults
	DefaultTeamCachePrefix = "awscost-team-cache"
	DefaultTeamCacheTTL    = time.Hour

	// Anomaly defaults
	DefaultAnomalyThreshold = 25.0

	// Storage defaults
	DefaultStorageBackend = "sqlite"
	DefaultStoragePath    = "data/costwatch.db"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// Metrics defaults
	DefaultMetricsListenAddress = "127.0.0.1:9090"
)

// ApplyDefaults fills in zero-valued fields with defaults. Explicitly
// configured values are never touched.
func ApplyDefaults(cfg *Config) {
	if cfg.Refresh.Interval == 0 {
		cfg.Refresh.Interval = DefaultRefreshInterval
	}
	if cfg.Refresh.MinCallSpacing == 0 {
		cfg.Refresh.MinCallSpacing = DefaultMinCallSpacing
	}
	if cfg.Refresh.MaxConsecutiveFailures == 0 {
		cfg.Refresh.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if cfg.Refresh.IdleThreshold == 0 {
		cfg.Refresh.IdleThreshold = DefaultIdleThreshold
	}
	if cfg.Refresh.SelectedProfile == "" && len(cfg.Profiles) > 0 {
		cfg.Refresh.SelectedProfile = cfg.Profiles[0].Name
	}

	if cfg.Refresh.Retry.MaxRetries == 0 {
		cfg.Refresh.Retry.MaxRetries = DefaultRetryMaxRetries
	}
	if cfg.Refresh.Retry.BaseDelay == 0 {
		cfg.Refresh.Retry.BaseDelay = DefaultRetryBaseDelay
	}
	if cfg.Refresh.Retry.MaxDelay == 0 {
		cfg.Refresh.Retry.MaxDelay = DefaultRetryMaxDelay
	}
	if cfg.Refresh.Retry.Multiplier == 0 {
		cfg.Refresh.Retry.Multiplier = DefaultRetryMultiplier
	}

	if cfg.TeamCache.Prefix == "" {
		cfg.TeamCache.Prefix = DefaultTeamCachePrefix
	}
	if cfg.TeamCache.TTL == 0 {
		cfg.TeamCache.TTL = DefaultTeamCacheTTL
	}

	if cfg.Anomaly.ThresholdPercent == 0 {
		cfg.Anomaly.ThresholdPercent = DefaultAnomalyThreshold
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsListenAddress
	}

	for i := range cfg.Profiles {
		if cfg.Profiles[i].AlertThreshold == 0 {
			cfg.Profiles[i].AlertThreshold = 0.8
		}
		if cfg.Profiles[i].RefreshInterval == 0 {
			cfg.Profiles[i].RefreshInterval = DefaultRefreshInterval
		}
	}
}
