// Package metrics provides Prometheus metrics for the tagging engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors, registered on a
// dedicated registry so default Go runtime metrics stay out.
type Metrics struct {
	registry *prometheus.Registry

	ProductsTagged          prometheus.Counter
	TaggingErrors           prometheus.Counter
	FeedbackRecorded        prometheus.Counter
	Retrains                prometheus.Counter
	RetrainFailures         prometheus.Counter
	ReconciliationFallbacks prometheus.Counter
	TaggingDuration         prometheus.Histogram
	LastRetrainUnix         prometheus.Gauge
}

// New creates a metrics set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	const ns = "autotag"
	return &Metrics{
		registry: reg,
		ProductsTagged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "products_tagged_total",
			Help: "Products successfully tagged.",
		}),
		TaggingErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "tagging_errors_total",
			Help: "Tagging attempts that returned an error.",
		}),
		FeedbackRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "feedback_recorded_total",
			Help: "Human corrections recorded.",
		}),
		Retrains: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "retrains_total",
			Help: "Successful model retrains.",
		}),
		RetrainFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "retrain_failures_total",
			Help: "Retrain attempts that failed and kept the prior artifact set.",
		}),
		ReconciliationFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "reconciliation_fallbacks_total",
			Help: "Predictions where the raw category left the taxonomy and was replaced.",
		}),
		TaggingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "tagging_duration_seconds",
			Help:    "Latency of single-product tagging.",
			Buckets: prometheus.DefBuckets,
		}),
		LastRetrainUnix: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "last_retrain_timestamp_seconds",
			Help: "Unix time of the last successful retrain.",
		}),
	}
}

// Registry exposes the underlying registry for scraping handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
