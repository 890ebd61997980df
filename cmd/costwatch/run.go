package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/billing"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/cache/team"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/config"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/identity"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/limits"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/refresh"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/retry"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/scheduler"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/storage"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/telemetry/logging"
	"github.com/toml0006/AWSCostMonitor-sub001/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	watch    bool
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the cost monitor",
	Long: `Start the cost monitor with the specified configuration.

The monitor refreshes month-to-date spend for the selected profile on a
schedule, shares results through the team cache when one is configured,
and exposes Prometheus metrics when enabled.

Examples:
  # Start with default config
  costwatch run

  # Start with custom config
  costwatch run --config /etc/costwatch/config.yaml

  # Reload the config file on change
  costwatch run --watch

  # Validate config without starting
  costwatch run --dry-run`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload configuration on file change")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, nil); err != nil {
		return err
	}
	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default().With("component", "costwatch")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	executor := retry.NewExecutor(retry.Policy{
		MaxRetries: cfg.Refresh.Retry.MaxRetries,
		BaseDelay:  cfg.Refresh.Retry.BaseDelay,
		MaxDelay:   cfg.Refresh.Retry.MaxDelay,
		Multiplier: cfg.Refresh.Retry.Multiplier,
	})

	var teamClient *team.Client
	if cfg.TeamCache.Enabled {
		s3store, err := team.NewS3Store(ctx, team.S3Config{
			Bucket:       cfg.TeamCache.Bucket,
			Region:       cfg.TeamCache.Region,
			AWSProfile:   cfg.TeamCache.AWSProfile,
			SSEAlgorithm: cfg.TeamCache.SSEAlgorithm,
		})
		if err != nil {
			return fmt.Errorf("team cache setup failed: %w", err)
		}
		teamClient = team.NewClient(s3store, team.Config{
			Prefix: cfg.TeamCache.Prefix,
			TTL:    cfg.TeamCache.TTL,
		}, executor, costs.SystemClock{})
		logger.Info("team cache enabled", "bucket", cfg.TeamCache.Bucket, "prefix", cfg.TeamCache.Prefix)
	}

	var collector *metrics.Collector
	var observer refresh.Observer
	if cfg.Metrics.Enabled {
		statsFn := func() metrics.TeamStats { return metrics.TeamStats{} }
		connectedFn := func() bool { return false }
		if teamClient != nil {
			statsFn = func() metrics.TeamStats {
				s := teamClient.Stats()
				return metrics.TeamStats{
					Hits:         s.Hits,
					Misses:       s.Misses,
					Errors:       s.Errors,
					BytesWritten: s.BytesWritten,
				}
			}
			connectedFn = teamClient.Connected
		}
		collector = metrics.NewCollector(statsFn, connectedFn)
		observer = collector
	}

	policies := config.PoliciesFromConfig(cfg)
	audit := refresh.NewAuditLog(store, costs.SystemClock{})
	if err := audit.Load(ctx); err != nil {
		logger.Warn("failed to load api request history", "error", err)
	}

	orch := refresh.New(refresh.Config{
		Team:     teamClient,
		Limiter:  limits.NewRateLimiter(cfg.Refresh.MinCallSpacing),
		Breaker:  limits.NewCircuitBreaker(cfg.Refresh.MaxConsecutiveFailures),
		Fetcher:  billing.NewFetcher(),
		Resolver: identity.NewResolver(),
		Policies: policies,
		Audit:    audit,
		Store:    store,
		Anomaly:  cfg.Anomaly.Options(),
		Observer: observer,
	})
	if err := orch.RestoreCache(ctx); err != nil {
		logger.Warn("failed to restore cached snapshots", "error", err)
	}
	orch.Select(cfg.Refresh.SelectedProfile)

	target := &refreshTarget{orch: orch, profiles: profileIndex(cfg)}
	sched := scheduler.New(scheduler.Config{
		Target:        target,
		Interval:      cfg.Refresh.Interval,
		IdleThreshold: cfg.Refresh.IdleThreshold,
	})
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if sched.NeedsImmediateRefresh() {
		if err := target.Refresh(ctx); err != nil {
			logger.Warn("initial refresh failed", "error", err)
		}
	}

	if runFlags.watch {
		watcher := config.NewWatcher(cfgFile, 0)
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				policies.Reload(next)
				if err := sched.SetInterval(next.Refresh.Interval); err != nil {
					logger.Warn("rejected interval from reloaded config", "error", err)
				}
				if next.Refresh.SelectedProfile != "" && next.Refresh.SelectedProfile != orch.Selected() {
					orch.Select(next.Refresh.SelectedProfile)
					sched.Restart()
				}
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("config watcher exited", "error", err)
			}
		}()
	}

	if collector != nil {
		go serveMetrics(ctx, cfg.Metrics.ListenAddress, collector, logger)
	}

	logger.Info("costwatch started",
		"profile", cfg.Refresh.SelectedProfile,
		"interval", cfg.Refresh.Interval,
		"team_cache", cfg.TeamCache.Enabled,
	)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewSQLiteStore(cfg.Storage.Path)
	}
}

func profileIndex(cfg *config.Config) map[string]costs.Profile {
	index := make(map[string]costs.Profile, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		index[p.Name] = costs.Profile{Name: p.Name, Region: p.Region}
	}
	return index
}

func serveMetrics(ctx context.Context, addr string, collector *metrics.Collector, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}

// refreshTarget adapts the orchestrator to the scheduler.
type refreshTarget struct {
	orch     *refresh.Orchestrator
	profiles map[string]costs.Profile
}

func (t *refreshTarget) Refresh(ctx context.Context) error {
	name := t.orch.Selected()
	profile, ok := t.profiles[name]
	if !ok {
		profile = costs.Profile{Name: name}
	}
	return t.orch.Refresh(ctx, profile, refresh.Options{})
}

func (t *refreshTarget) DataAge() (time.Duration, bool) {
	snap, ok := t.orch.Snapshot(t.orch.Selected())
	if !ok {
		return 0, false
	}
	return time.Since(snap.FetchDate), true
}
