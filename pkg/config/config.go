package config

import (
	"time"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/anomaly"
)

// Config is the root configuration structure.
type Config struct {
	// Profiles lists the AWS profiles to monitor.
	Profiles []ProfileConfig `yaml:"profiles"`

	// Refresh controls the background refresh cadence and API protection.
	Refresh RefreshConfig `yaml:"refresh"`

	// TeamCache configures the shared S3-backed cache tier.
	TeamCache TeamCacheConfig `yaml:"team_cache"`

	// Anomaly configures spending anomaly detection.
	Anomaly AnomalyConfig `yaml:"anomaly"`

	// Storage configures local persistence.
	Storage StorageConfig `yaml:"storage"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// ProfileConfig describes one monitored AWS profile.
type ProfileConfig struct {
	// Name is the AWS shared-config profile name. Required, unique.
	Name string `yaml:"name"`

	// Region optionally overrides the profile's region.
	Region string `yaml:"region,omitempty"`

	// MonthlyBudget is the optional monthly budget as a decimal string
	// (e.g., "1500.00"). Empty means no budget.
	MonthlyBudget string `yaml:"monthly_budget,omitempty"`

	// AlertThreshold is the fraction of the budget (0..1] at which the
	// profile counts as near budget.
	AlertThreshold float64 `yaml:"alert_threshold,omitempty"`

	// RefreshInterval is how long this profile's data stays fresh.
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
}

// RefreshConfig controls the scheduler and API protection layers.
type RefreshConfig struct {
	// Interval between scheduled refreshes. Minimum one minute.
	Interval time.Duration `yaml:"interval"`

	// MinCallSpacing is the minimum gap between live billing API calls.
	MinCallSpacing time.Duration `yaml:"min_call_spacing"`

	// MaxConsecutiveFailures trips the circuit breaker.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

	// IdleThreshold is how long without user activity counts as idle.
	IdleThreshold time.Duration `yaml:"idle_threshold"`

	// SelectedProfile is the profile active at startup. Defaults to the
	// first configured profile.
	SelectedProfile string `yaml:"selected_profile,omitempty"`

	// Retry controls upstream retry behavior.
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig controls exponential backoff for remote operations.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is applied to the delay after each attempt.
	Multiplier float64 `yaml:"multiplier"`
}

// TeamCacheConfig configures the shared cache tier.
type TeamCacheConfig struct {
	// Enabled turns the shared tier on. When off, only the local cache and
	// the live API are used.
	Enabled bool `yaml:"enabled"`

	// Bucket is the S3 bucket name. Required when enabled.
	Bucket string `yaml:"bucket,omitempty"`

	// Region is the bucket region. Empty uses the SDK default chain.
	Region string `yaml:"region,omitempty"`

	// AWSProfile is the shared-config profile used for bucket access.
	AWSProfile string `yaml:"aws_profile,omitempty"`

	// Prefix is the key prefix shared entries live under.
	Prefix string `yaml:"prefix,omitempty"`

	// TTL is how long written entries stay fresh.
	TTL time.Duration `yaml:"ttl,omitempty"`

	// SSEAlgorithm enables server-side encryption on writes when set.
	SSEAlgorithm string `yaml:"sse_algorithm,omitempty"`
}

// AnomalyConfig configures spending anomaly detection. The zero value means
// detection is on at the default threshold.
type AnomalyConfig struct {
	// Disabled turns detection off.
	Disabled bool `yaml:"disabled"`

	// ThresholdPercent is the deviation percentage above which spend is
	// anomalous.
	ThresholdPercent float64 `yaml:"threshold_percent,omitempty"`
}

// Options converts the configuration to detector options.
func (c AnomalyConfig) Options() anomaly.Options {
	return anomaly.Options{Enabled: !c.Disabled, ThresholdPercent: c.ThresholdPercent}
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// Path is the SQLite database path. Ignored for the memory backend.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled exposes /metrics when true.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics listener address.
	ListenAddress string `yaml:"listen_address,omitempty"`
}
