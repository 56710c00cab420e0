package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roadmapcore/pkg/domain"
)

const pfCSV = `Swimlane,Label,Product Feature,Platform,ODD,Env,Trailer,Details,Next,Capabilities,,
Operational,PF-OPS-1.1,Port baseline,truck,,,,"* Speed limits",Y,CA-PRC-1.1,,
`

const caCSV = `Swimlane,Label,Capability,Platform,ODD,Environment,,,,Product Feature,,
Perception,CA-PRC-1.1,Obstacle detection,truck,PF-OPS-1.1,,,,,,,
`

const tfCSV = `Capability,Tech,Date,,
,,TRL 4,TRL 7,TRL 9
Obstacle detection CA-PRC-1.1,TE-PRC-1.1,01/15/2024,06/01/2024,
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCLIWritesDocument(t *testing.T) {
	output := filepath.Join(t.TempDir(), "roadmap.json")
	var stdout, stderr bytes.Buffer

	code := cli([]string{
		"--pf-csv", writeFixture(t, "pf.csv", pfCSV),
		"--ca-csv", writeFixture(t, "ca.csv", caCSV),
		"--tf-csv", writeFixture(t, "tf.csv", tfCSV),
		"-o", output,
		"--now", "2024-07-01T00:00:00Z",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if doc.Metadata.Version != domain.SchemaVersion || doc.Metadata.CreatedDate != "2024-07-01" {
		t.Fatalf("unexpected metadata: %+v", doc.Metadata)
	}
	if len(doc.Entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(doc.Entities))
	}
	if !strings.Contains(stdout.String(), "wrote "+output) {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
}

func TestCLIDefaultsToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := cli([]string{
		"--pf-csv", writeFixture(t, "pf.csv", pfCSV),
		"--now", "2024-07-01T00:00:00Z",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	var doc domain.Document
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("stdout is not a document: %v", err)
	}
}

func TestCLIMissingInputsDegrade(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := cli([]string{
		"--pf-csv", filepath.Join(dir, "absent-pf.csv"),
		"--ca-csv", filepath.Join(dir, "absent-ca.csv"),
		"--tf-csv", filepath.Join(dir, "absent-tf.csv"),
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "input_missing") {
		t.Fatalf("expected input_missing findings, got: %s", stderr.String())
	}
}

func TestCLIUnreadableInputFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := cli([]string{"--pf-csv", t.TempDir()}, &stdout, &stderr)
	if code == 0 {
		t.Fatal("expected non-zero exit for unreadable input")
	}
}

func TestCLIBadNowFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := cli([]string{"--now", "yesterday"}, &stdout, &stderr)
	if code == 0 {
		t.Fatal("expected non-zero exit for bad --now")
	}
	if !strings.Contains(stderr.String(), "parse --now") {
		t.Fatalf("unexpected stderr: %s", stderr.String())
	}
}

func TestCLIOutputWriteFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	output := filepath.Join(t.TempDir(), "missing-dir", "roadmap.json")
	code := cli([]string{"-o", output}, &stdout, &stderr)
	if code == 0 {
		t.Fatal("expected non-zero exit for unwritable output")
	}
}

func TestCLIMissingLayoutFileFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := cli([]string{"--layout", filepath.Join(t.TempDir(), "absent.yaml")}, &stdout, &stderr)
	if code == 0 {
		t.Fatal("expected non-zero exit for missing layout file")
	}
}

func TestCLILayoutFileOverride(t *testing.T) {
	layout := writeFixture(t, "layout.yaml", `name: custom
product_feature:
  swimlane: 0
  label: 1
  name: 2
  vehicle_type: 3
  details: 7
  next_flag: 8
  capability_from: 9
  capability_to: 11
  header_rows: 1
capability:
  swimlane: 0
  label: 1
  name: 2
  vehicle_type: 3
  feature_from: 4
  feature_to: 5
  feature_cell: 9
  header_rows: 1
technical_function:
  capability: 0
  labels: 1
  trl:
    - index: 2
      level: 4
  header_rows: 2
`)
	var stdout, stderr bytes.Buffer
	code := cli([]string{
		"--pf-csv", writeFixture(t, "pf.csv", pfCSV),
		"--layout", layout,
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	var codes []int
	old := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc = old }()

	os.Args = []string{"roadmap-convert", "--now", "not-a-time"}
	main()
	if len(codes) != 1 || codes[0] == 0 {
		t.Fatalf("unexpected exit codes: %v", codes)
	}
}
