package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "costwatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleYAML = `
profiles:
  - name: dev
    region: us-west-2
    monthly_budget: "1500.00"
    alert_threshold: 0.9
  - name: prod
refresh:
  interval: 10m
  selected_profile: prod
team_cache:
  enabled: true
  bucket: team-cost-cache
  region: us-east-1
storage:
  backend: memory
logging:
  level: debug
  format: json
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(cfg.Profiles))
	}
	if cfg.Profiles[0].MonthlyBudget != "1500.00" {
		t.Fatalf("MonthlyBudget = %q", cfg.Profiles[0].MonthlyBudget)
	}
	if cfg.Refresh.Interval != 10*time.Minute {
		t.Fatalf("Interval = %s, want 10m", cfg.Refresh.Interval)
	}
	if cfg.Refresh.SelectedProfile != "prod" {
		t.Fatalf("SelectedProfile = %q, want prod", cfg.Refresh.SelectedProfile)
	}

	// Omitted fields picked up defaults.
	if cfg.Refresh.MinCallSpacing != DefaultMinCallSpacing {
		t.Fatalf("MinCallSpacing = %s, want default", cfg.Refresh.MinCallSpacing)
	}
	if cfg.TeamCache.Prefix != DefaultTeamCachePrefix {
		t.Fatalf("Prefix = %q, want default", cfg.TeamCache.Prefix)
	}
	if cfg.TeamCache.TTL != DefaultTeamCacheTTL {
		t.Fatalf("TTL = %s, want default", cfg.TeamCache.TTL)
	}
	if cfg.Anomaly.Disabled {
		t.Fatal("anomaly detection disabled by default")
	}
	if cfg.Anomaly.ThresholdPercent != DefaultAnomalyThreshold {
		t.Fatalf("ThresholdPercent = %g, want default", cfg.Anomaly.ThresholdPercent)
	}
	if cfg.Profiles[1].AlertThreshold != 0.8 {
		t.Fatalf("profile default AlertThreshold = %g, want 0.8", cfg.Profiles[1].AlertThreshold)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfigFile(t, "profiles: [unclosed")); err == nil {
		t.Fatal("want error for invalid YAML")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("COSTWATCH_REFRESH_INTERVAL", "30m")
	t.Setenv("COSTWATCH_TEAM_CACHE_BUCKET", "override-bucket")
	t.Setenv("COSTWATCH_STORAGE_BACKEND", "memory")
	t.Setenv("COSTWATCH_LOG_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(writeConfigFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}
	if cfg.Refresh.Interval != 30*time.Minute {
		t.Fatalf("Interval = %s, want 30m from env", cfg.Refresh.Interval)
	}
	if cfg.TeamCache.Bucket != "override-bucket" {
		t.Fatalf("Bucket = %q, want override-bucket", cfg.TeamCache.Bucket)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("COSTWATCH_LOG_LEVEL", "loud")
	if _, err := LoadConfigWithEnvOverrides(writeConfigFile(t, sampleYAML)); err == nil {
		t.Fatal("want validation error for bad env override")
	}
}
