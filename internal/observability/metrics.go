// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Issuer metrics
	TokensIssued     prometheus.Counter
	TokensRedeemed   prometheus.Counter
	AmountIssued     prometheus.Counter
	AmountRedeemed   prometheus.Counter
	OperationLatency *prometheus.HistogramVec

	// Selection metrics
	DegradedSelections prometheus.Counter

	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionDuration   prometheus.Histogram
	HopDuration       prometheus.Histogram

	// Pool metrics
	PoolSize prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_mixer"
	}

	return &Metrics{
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "tokens_issued_total",
			Help:      "Total number of tokens issued across the pool",
		}),
		TokensRedeemed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "tokens_redeemed_total",
			Help:      "Total number of tokens redeemed across the pool",
		}),
		AmountIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "amount_issued_total",
			Help:      "Total value issued across the pool",
		}),
		AmountRedeemed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "amount_redeemed_total",
			Help:      "Total value redeemed across the pool",
		}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "operation_latency_seconds",
			Help:      "Simulated issuer operation latency in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.5},
		}, []string{"operation"}),

		DegradedSelections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "degraded_total",
			Help:      "Total number of degraded selections (full-pool fallback)",
		}),

		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total number of mixing sessions started",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "completed_total",
			Help:      "Total number of mixing sessions completed",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Mixing session duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		HopDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "hop_duration_seconds",
			Help:      "Single hop (redeem + re-issue) duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 1, 2},
		}),

		PoolSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vendor",
			Name:      "pool_size",
			Help:      "Number of issuers in the vendor pool",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordIssue records one issue operation.
func RecordIssue(amount int64, latencySeconds float64) {
	DefaultMetrics.TokensIssued.Inc()
	DefaultMetrics.AmountIssued.Add(float64(amount))
	DefaultMetrics.OperationLatency.WithLabelValues("issue").Observe(latencySeconds)
}

// RecordRedeem records one redeem operation covering tokenCount tokens.
func RecordRedeem(amount int64, tokenCount int, latencySeconds float64) {
	DefaultMetrics.TokensRedeemed.Add(float64(tokenCount))
	DefaultMetrics.AmountRedeemed.Add(float64(amount))
	DefaultMetrics.OperationLatency.WithLabelValues("redeem").Observe(latencySeconds)
}

// RecordDegradedSelection records a full-pool fallback selection.
func RecordDegradedSelection() {
	DefaultMetrics.DegradedSelections.Inc()
}

// RecordSessionStart records the start of a mixing session.
func RecordSessionStart() {
	DefaultMetrics.SessionsStarted.Inc()
}

// RecordSessionComplete records a completed mixing session.
func RecordSessionComplete(durationSeconds float64) {
	DefaultMetrics.SessionsCompleted.Inc()
	DefaultMetrics.SessionDuration.Observe(durationSeconds)
}

// RecordHop records one completed hop.
func RecordHop(durationSeconds float64) {
	DefaultMetrics.HopDuration.Observe(durationSeconds)
}

// SetPoolSize updates the vendor pool size gauge.
func SetPoolSize(n int) {
	DefaultMetrics.PoolSize.Set(float64(n))
}
