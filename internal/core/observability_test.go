package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatal("expected generated name")
	}
	ctx := context.Background()

	rec.Observe(ctx, "apply_document", true, 20*time.Millisecond)
	rec.Observe(ctx, "apply_document", true, 30*time.Millisecond)
	rec.Observe(ctx, "apply_document", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["apply_document"]; got != 55 {
		t.Fatalf("expected 55ms total, got %v", got)
	}
	if snap.Results["apply_document"]["success"] != 2 || snap.Results["apply_document"]["error"] != 1 {
		t.Fatalf("unexpected results: %v", snap.Results)
	}
	if len(snap.DurationsMS) != 1 {
		t.Fatalf("expected empty operation ignored, got %v", snap.DurationsMS)
	}

	// Snapshot copies must not alias internal state.
	snap.Results["apply_document"]["success"] = 99
	if rec.Snapshot().Results["apply_document"]["success"] != 2 {
		t.Fatal("expected snapshot to be a copy")
	}
}

func TestJSONTraceTracerEmitsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), "export_document")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "apply_document")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Operation != "export_document" || entries[0].Status != "success" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"boom"`) {
		t.Fatalf("expected error in serialized span: %s", lines[1])
	}
}

func TestJSONTracerNilWriterRetainsOnly(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "op")
	span.End(nil)
	if len(tracer.Entries()) != 1 {
		t.Fatal("expected retained entry without writer")
	}
}
