package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder fulfills MetricsRecorder with Prometheus
// collectors registered on a private registry.
type PrometheusMetricsRecorder struct {
	registry  *prometheus.Registry
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder constructs a recorder under the given
// namespace. An empty namespace defaults to "growvertising".
func NewPrometheusMetricsRecorder(namespace string) *PrometheusMetricsRecorder {
	if namespace == "" {
		namespace = "growvertising"
	}

	r := &PrometheusMetricsRecorder{
		registry: prometheus.NewRegistry(),
	}

	r.durations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Time taken to complete a service operation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation", "result"},
	)

	r.results = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "operation_results_total",
			Help:      "Total service operation outcomes by result",
		},
		[]string{"operation", "result"},
	)

	r.registry.MustRegister(r.durations, r.results)
	return r
}

// Registry exposes the private registry for HTTP handler wiring.
func (r *PrometheusMetricsRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	r.durations.WithLabelValues(operation, result).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, result).Inc()
}
