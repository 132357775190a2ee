package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coster"

// Metrics holds all Prometheus metrics
type Metrics struct {
	gatherer prometheus.Gatherer

	// Tab metrics
	TabMutations *prometheus.CounterVec

	// Settlement metrics
	SettlementsComputed prometheus.Counter
	SettlementDuration  prometheus.Histogram
	SettlementPayments  prometheus.Histogram
	SettlementFailures  *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg. A nil reg uses a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		TabMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tab_mutations_total",
				Help:      "Total number of tab mutations by operation",
			},
			[]string{"operation"},
		),

		SettlementsComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_computed_total",
			Help:      "Total number of settlement computations",
		}),
		SettlementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_seconds",
			Help:      "Duration of settlement computations",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		SettlementPayments: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_payments",
			Help:      "Number of payments produced by a settlement",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 255},
		}),
		SettlementFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlement_failures_total",
				Help:      "Total number of failed settlements by reason",
			},
			[]string{"reason"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
	}
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// TabMutated implements usecase.MetricsRecorder.
func (m *Metrics) TabMutated(operation string) {
	m.TabMutations.WithLabelValues(operation).Inc()
}

// SettlementComputed implements usecase.MetricsRecorder.
func (m *Metrics) SettlementComputed(duration time.Duration, settlements int) {
	m.SettlementsComputed.Inc()
	m.SettlementDuration.Observe(duration.Seconds())
	m.SettlementPayments.Observe(float64(settlements))
}

// SettlementFailed implements usecase.MetricsRecorder.
func (m *Metrics) SettlementFailed(reason string) {
	m.SettlementFailures.WithLabelValues(reason).Inc()
}
