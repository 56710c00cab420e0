package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()

	rec.Observe(ctx, "apply_document", true, 25*time.Millisecond)
	rec.Observe(ctx, "apply_document", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	if got := testutil.ToFloat64(rec.results.WithLabelValues("apply_document", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("apply_document", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.CollectAndCount(rec.durations); got != 1 {
		t.Fatalf("expected 1 histogram series, got %d", got)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
