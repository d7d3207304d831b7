package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions for the DQSI engine.

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqsi",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dqsi",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"method", "handler"},
	)

	// Scoring metrics
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqsi",
			Subsystem: "engine",
			Name:      "calculations_total",
			Help:      "Total number of DQSI calculations",
		},
		[]string{"strategy", "kind"},
	)

	CalculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dqsi",
			Subsystem: "engine",
			Name:      "calculation_duration_seconds",
			Help:      "DQSI calculation latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100μs to ~1.6s
		},
		[]string{"strategy", "kind"},
	)

	ScoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dqsi",
			Subsystem: "engine",
			Name:      "score",
			Help:      "Distribution of computed DQSI scores",
			Buckets:   prometheus.LinearBuckets(0.0, 0.1, 11),
		},
	)

	CriticalCapApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dqsi",
			Subsystem: "engine",
			Name:      "critical_cap_applied_total",
			Help:      "Calculations where a missing critical KDE capped the score",
		},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqsi",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Assessment cache hits",
		},
		[]string{"kind"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dqsi",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Assessment cache misses",
		},
		[]string{"kind"},
	)
)

// ObserveCalculation records one completed calculation.
func ObserveCalculation(strategy, kind string, score float64, started time.Time, capped bool) {
	CalculationsTotal.WithLabelValues(strategy, kind).Inc()
	CalculationDuration.WithLabelValues(strategy, kind).Observe(time.Since(started).Seconds())
	ScoreDistribution.Observe(score)
	if capped {
		CriticalCapApplied.Inc()
	}
}
