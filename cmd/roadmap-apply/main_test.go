package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roadmapcore/internal/blob"
	"roadmapcore/internal/core"
	"roadmapcore/internal/infra/persistence/memory"
	"roadmapcore/pkg/domain"
)

func sampleDocument() domain.Document {
	return domain.Document{
		Metadata: domain.Metadata{
			Version:     domain.SchemaVersion,
			CreatedBy:   "roadmap-convert",
			CreatedDate: "2024-07-01",
		},
		Entities: []domain.Record{
			{
				EntityType:       domain.EntityProductFeature,
				Operation:        domain.OperationCreate,
				Name:             "Autonomous navigation",
				Label:            "PF-NAV-1.1",
				PlannedStartDate: "2024-01-01",
				PlannedEndDate:   "2024-12-31",
			},
			{
				EntityType:       domain.EntityCapability,
				Operation:        domain.OperationCreate,
				Name:             "Precision landing",
				Label:            "CA-PRC-1.1",
				ProductFeatures:  []string{"PF-NAV-1.1"},
				PlannedStartDate: "2024-02-01",
				PlannedEndDate:   "2024-09-01",
			},
		},
	}
}

func writeDocument(t *testing.T, doc domain.Document) string {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "roadmap.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func withMemoryBackends(t *testing.T) (*memory.Store, blob.Store) {
	t.Helper()
	store := memory.NewStore(domain.NewRulesEngine())
	blobStore := blob.NewMemory()
	oldStore, oldBlob := openStore, openBlob
	openStore = func() (core.PersistentStore, error) { return store, nil }
	openBlob = func(context.Context) (blob.Store, error) { return blobStore, nil }
	t.Cleanup(func() { openStore, openBlob = oldStore, oldBlob })
	return store, blobStore
}

func TestCLIAppliesDocument(t *testing.T) {
	store, _ := withMemoryBackends(t)
	input := writeDocument(t, sampleDocument())

	var stdout, stderr bytes.Buffer
	code := cli([]string{"-i", input}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "created 2") {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
	if _, ok := store.GetProductFeature("PF-NAV-1.1"); !ok {
		t.Fatal("product feature not stored")
	}
	if _, ok := store.GetCapability("CA-PRC-1.1"); !ok {
		t.Fatal("capability not stored")
	}
}

func TestCLIPublishesDocument(t *testing.T) {
	_, blobStore := withMemoryBackends(t)
	input := writeDocument(t, sampleDocument())

	var stdout, stderr bytes.Buffer
	code := cli([]string{"--input", input, "--publish", "runs/1/roadmap.json"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "published runs/1/roadmap.json") {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
	got, err := blob.FetchDocument(context.Background(), blobStore, "runs/1/roadmap.json")
	if err != nil {
		t.Fatalf("fetch published: %v", err)
	}
	if len(got.Entities) != 2 {
		t.Fatalf("unexpected published document: %+v", got)
	}
}

func TestCLIRequiresInput(t *testing.T) {
	withMemoryBackends(t)
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code == 0 {
		t.Fatal("expected non-zero exit without --input")
	}
}

func TestCLIRejectsMissingFile(t *testing.T) {
	withMemoryBackends(t)
	var stdout, stderr bytes.Buffer
	code := cli([]string{"-i", filepath.Join(t.TempDir(), "absent.json")}, &stdout, &stderr)
	if code == 0 {
		t.Fatal("expected non-zero exit for missing file")
	}
}

func TestCLIRejectsInvalidJSON(t *testing.T) {
	withMemoryBackends(t)
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var stdout, stderr bytes.Buffer
	code := cli([]string{"-i", path}, &stdout, &stderr)
	if code == 0 {
		t.Fatal("expected non-zero exit for invalid JSON")
	}
	if !strings.Contains(stderr.String(), "decode document") {
		t.Fatalf("unexpected stderr: %s", stderr.String())
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	withMemoryBackends(t)
	var codes []int
	old := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc = old }()

	os.Args = []string{"roadmap-apply"}
	main()
	if len(codes) != 1 || codes[0] == 0 {
		t.Fatalf("unexpected exit codes: %v", codes)
	}
}
