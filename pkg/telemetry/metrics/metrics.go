// Package metrics exposes Prometheus metrics for the cache tiers and the
// refresh pipeline. All metrics register against an injected registry so
// tests never collide on the global default.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "costwatch"

// Collector owns the registry and all metric families.
type Collector struct {
	registry *prometheus.Registry

	// Team cache
	cacheHits    prometheus.GaugeFunc
	cacheMisses  prometheus.GaugeFunc
	cacheErrors  prometheus.GaugeFunc
	cacheBytes   prometheus.GaugeFunc
	cacheConnect prometheus.GaugeFunc

	// Refresh pipeline
	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	anomaliesActive *prometheus.GaugeVec
}

// TeamStats mirrors the team cache counter snapshot the gauges read.
type TeamStats struct {
	Hits         int64
	Misses       int64
	Errors       int64
	BytesWritten int64
}

// NewCollector builds a Collector on its own registry. statsFn supplies the
// team cache counters and may be nil when the shared tier is disabled.
func NewCollector(statsFn func() TeamStats, connectedFn func() bool) *Collector {
	registry := prometheus.NewRegistry()

	if statsFn == nil {
		statsFn = func() TeamStats { return TeamStats{} }
	}
	if connectedFn == nil {
		connectedFn = func() bool { return false }
	}

	c := &Collector{
		registry: registry,
		cacheHits: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_cache_hits",
			Help:      "Team cache hits since process start",
		}, func() float64 { return float64(statsFn().Hits) }),
		cacheMisses: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_cache_misses",
			Help:      "Team cache misses since process start",
		}, func() float64 { return float64(statsFn().Misses) }),
		cacheErrors: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_cache_errors",
			Help:      "Team cache errors since process start",
		}, func() float64 { return float64(statsFn().Errors) }),
		cacheBytes: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_cache_bytes_written",
			Help:      "Bytes written to the team cache since process start",
		}, func() float64 { return float64(statsFn().BytesWritten) }),
		cacheConnect: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_cache_connected",
			Help:      "Whether the team cache bucket has been reached (1) or not (0)",
		}, func() float64 {
			if connectedFn() {
				return 1
			}
			return 0
		}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh attempts by profile and outcome",
		}, []string{"profile", "outcome"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Refresh duration by profile",
			Buckets:   prometheus.DefBuckets,
		}, []string{"profile"}),
		anomaliesActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anomalies_active",
			Help:      "Anomalies flagged by the most recent refresh, by profile",
		}, []string{"profile"}),
	}

	registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.cacheErrors,
		c.cacheBytes,
		c.cacheConnect,
		c.refreshTotal,
		c.refreshDuration,
		c.anomaliesActive,
	)
	return c
}

// RefreshOutcome records one refresh attempt. Implements the orchestrator's
// Observer.
func (c *Collector) RefreshOutcome(profileName, outcome string, duration time.Duration) {
	c.refreshTotal.WithLabelValues(profileName, outcome).Inc()
	c.refreshDuration.WithLabelValues(profileName).Observe(duration.Seconds())
}

// AnomaliesDetected records the anomaly count from the latest refresh.
func (c *Collector) AnomaliesDetected(profileName string, count int) {
	c.anomaliesActive.WithLabelValues(profileName).Set(float64(count))
}

// Registry exposes the backing registry for additional registrations.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler returns the Prometheus exposition handler for this registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
