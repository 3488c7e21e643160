// Package metrics provides Prometheus metrics for the wildtrack
// prediction services: prediction volume, fallback and degraded-path
// usage, latency, and confidence distribution, exposed via the
// /metrics endpoint of the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction services.
type Metrics struct {
	PredictionsTotal prometheus.Counter   // Total predictions served
	FallbacksTotal   prometheus.Counter   // Predictions answered by the fixed fallback result
	DegradedTotal    prometheus.Counter   // Predictions served after sentinel substitution
	BatchRequests    prometheus.Counter   // Batch prediction requests
	ParkRequests     prometheus.Counter   // Park recommendation requests
	ErrorsTotal      prometheus.Counter   // Errors encountered outside the prediction path
	PredictionScores prometheus.Histogram // Averaged confidence distribution
	Latency          prometheus.Histogram // End-to-end prediction latency in seconds
	ModelAge         prometheus.Gauge     // Age of the loaded model bundle in seconds
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, which keeps
// tests isolated from the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of seasonal predictions served",
		}),
		FallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_fallbacks_total",
			Help: "Total number of predictions answered by the fallback result",
		}),
		DegradedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_degraded_total",
			Help: "Total number of predictions served after unknown-category substitution",
		}),
		BatchRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_requests_total",
			Help: "Total number of batch prediction requests",
		}),
		ParkRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "park_requests_total",
			Help: "Total number of park recommendation requests",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Distribution of averaged prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_bundle_age_seconds",
			Help: "Age of the loaded model bundle in seconds",
		}),
	}
}
