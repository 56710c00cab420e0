package pipeline

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"roadmapcore/pkg/domain"
)

type captureMetrics struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
}

func fixedNow() time.Time {
	return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
}

func TestRunEndToEnd(t *testing.T) {
	metrics := &captureMetrics{}
	opts := Options{
		ProductFeaturePath:    writeCSV(t, "pf.csv", pfCSV),
		CapabilityPath:        writeCSV(t, "ca.csv", caCSV),
		TechnicalFunctionPath: writeCSV(t, "tf.csv", tfCSV),
		Layout:                DefaultLayout(),
		Now:                   fixedNow(),
		Metrics:               metrics,
	}

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ProductFeatures != 3 || res.Capabilities != 2 || res.TechnicalFunctions != 2 {
		t.Fatalf("counts = %d/%d/%d", res.ProductFeatures, res.Capabilities, res.TechnicalFunctions)
	}
	if res.Document.Metadata.Version != domain.SchemaVersion {
		t.Fatalf("schema version = %q", res.Document.Metadata.Version)
	}
	if res.Document.Metadata.CreatedDate != "2024-07-01" {
		t.Fatalf("created date = %q", res.Document.Metadata.CreatedDate)
	}

	// Kind ordering: every product feature precedes every capability, which
	// precedes every technical function.
	rank := map[domain.EntityType]int{
		domain.EntityProductFeature:    0,
		domain.EntityCapability:        1,
		domain.EntityTechnicalFunction: 2,
	}
	last := -1
	for _, rec := range res.Document.Entities {
		if rec.Operation != domain.OperationCreate {
			t.Fatalf("unexpected operation %q", rec.Operation)
		}
		if r := rank[rec.EntityType]; r < last {
			t.Fatalf("entity ordering violated at %s", rec.Label)
		} else {
			last = r
		}
	}

	if len(metrics.calls) != 1 || metrics.calls[0] != "pipeline.run" {
		t.Fatalf("metrics calls = %v", metrics.calls)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	opts := Options{
		ProductFeaturePath:    writeCSV(t, "pf.csv", pfCSV),
		CapabilityPath:        writeCSV(t, "ca.csv", caCSV),
		TechnicalFunctionPath: writeCSV(t, "tf.csv", tfCSV),
		Layout:                DefaultLayout(),
		Now:                   fixedNow(),
	}
	first, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first.Document, second.Document) {
		t.Fatalf("same inputs and now produced different documents")
	}
}

func TestRunDegradesWithoutTechnicalFunctions(t *testing.T) {
	opts := Options{
		ProductFeaturePath:    writeCSV(t, "pf.csv", pfCSV),
		CapabilityPath:        writeCSV(t, "ca.csv", caCSV),
		TechnicalFunctionPath: filepath.Join(t.TempDir(), "absent.csv"),
		Layout:                DefaultLayout(),
		Now:                   fixedNow(),
	}
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TechnicalFunctions != 0 {
		t.Fatalf("expected no technical functions, got %d", res.TechnicalFunctions)
	}
	if !hasFinding(res.Report, "input_missing") {
		t.Fatalf("expected input_missing finding, got %v", findingCodes(res.Report))
	}
	for _, rec := range res.Document.Entities {
		if rec.EntityType == domain.EntityTechnicalFunction {
			t.Fatalf("document should not contain technical functions")
		}
		if rec.EntityType == domain.EntityCapability && len(rec.TechnicalFunctions) != 0 {
			t.Fatalf("capability %s kept technical function links: %v", rec.Label, rec.TechnicalFunctions)
		}
	}
}

func TestRunRejectsUnreadableInput(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		ProductFeaturePath:    dir, // a directory is not a readable CSV
		CapabilityPath:        filepath.Join(dir, "absent.csv"),
		TechnicalFunctionPath: filepath.Join(dir, "absent.csv"),
		Layout:                DefaultLayout(),
		Now:                   fixedNow(),
	}
	if _, err := Run(context.Background(), opts); err == nil {
		t.Fatalf("expected error for unreadable input")
	}
}

func TestRunValidatesLayout(t *testing.T) {
	layout := DefaultLayout()
	layout.ProductFeature.CapabilityFrom = 5
	layout.ProductFeature.CapabilityTo = 2
	opts := Options{Layout: layout, Now: fixedNow()}
	if _, err := Run(context.Background(), opts); err == nil {
		t.Fatalf("expected layout validation error")
	}
}
