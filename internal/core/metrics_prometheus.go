package core

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation durations and outcome counters
// through a prometheus registry.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the recorder's collectors with reg;
// a nil registerer uses the default registry.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadmapcore",
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Duration of service operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadmapcore",
		Subsystem: "service",
		Name:      "operation_results_total",
		Help:      "Count of service operation outcomes by status.",
	}, []string{"operation", "status"})

	if err := reg.Register(durations); err != nil {
		return nil, fmt.Errorf("register duration histogram: %w", err)
	}
	if err := reg.Register(results); err != nil {
		return nil, fmt.Errorf("register result counter: %w", err)
	}
	return &PrometheusMetricsRecorder{durations: durations, results: results}, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}
