// Package metrics exposes Prometheus instrumentation for the analytics
// engine: cache hit/miss counters, recompute latency and cache write
// failures.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Analytics implements analytics.MetricsRecorder with Prometheus
// collectors.
type Analytics struct {
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheWriteErrors prometheus.Counter
	recomputeSeconds prometheus.Histogram
}

// NewAnalytics creates and registers the collectors on the given
// registerer.
func NewAnalytics(reg prometheus.Registerer) *Analytics {
	m := &Analytics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "student_analytics",
			Name:      "cache_hits_total",
			Help:      "Statistics requests served from the snapshot cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "student_analytics",
			Name:      "cache_misses_total",
			Help:      "Statistics requests that triggered a recomputation.",
		}),
		cacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "student_analytics",
			Name:      "cache_write_errors_total",
			Help:      "Failed snapshot write-backs after a recomputation.",
		}),
		recomputeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "student_analytics",
			Name:      "recompute_duration_seconds",
			Help:      "Wall time of a full statistics recomputation.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.cacheHits, m.cacheMisses, m.cacheWriteErrors, m.recomputeSeconds)
	return m
}

// CacheHit implements analytics.MetricsRecorder.
func (m *Analytics) CacheHit() { m.cacheHits.Inc() }

// CacheMiss implements analytics.MetricsRecorder.
func (m *Analytics) CacheMiss() { m.cacheMisses.Inc() }

// Recompute implements analytics.MetricsRecorder.
func (m *Analytics) Recompute(d time.Duration) { m.recomputeSeconds.Observe(d.Seconds()) }

// CacheWriteError implements analytics.MetricsRecorder.
func (m *Analytics) CacheWriteError() { m.cacheWriteErrors.Inc() }
