package pipeline

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"roadmapcore/pkg/domain"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func findingCodes(report domain.Report) []string {
	var codes []string
	for _, f := range report.Findings {
		codes = append(codes, f.Code)
	}
	return codes
}

func hasFinding(report domain.Report, code string) bool {
	for _, f := range report.Findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

const pfCSV = `Swimlane,Label,Product Feature,Platform,ODD,Env,Trailer,Details,Next,Capabilities,,
Operational,PF-OPS-1.1,Port baseline,truck,,,,"* Speed limits",Y,CA-CHE-1.1,CA-PRC-1.1,
,PF-OPS-1.2,Port extension,truck,,,,"Builds on PF-OPS-1.1",N,CA-PRC-1.1,,
Environmental,PF-ENV-1.1,Rain,truck,,,,,,N,,
Odd,PF-ODD-1.3,Yard moves,truck,,,,,Y,CA-LOC-2.1,,
,,,,,,,,,,,
`

func TestParseProductFeatures(t *testing.T) {
	path := writeCSV(t, "pf.csv", pfCSV)
	var report domain.Report
	pfs, err := ParseProductFeatures(path, DefaultLayout(), &report)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(pfs) != 3 {
		t.Fatalf("expected 3 product features, got %d (%v)", len(pfs), findingCodes(report))
	}
	if _, ok := pfs["PF-ENV-1.1"]; ok {
		t.Fatalf("environmental swimlane row should be excluded")
	}
	if !hasFinding(report, "swimlane_excluded") {
		t.Fatalf("expected swimlane_excluded finding, got %v", findingCodes(report))
	}

	first := pfs["PF-OPS-1.1"]
	if first.Swimlane != "OPERATIONAL" {
		t.Fatalf("swimlane = %q", first.Swimlane)
	}
	if first.ActiveFlag != domain.ActiveNext {
		t.Fatalf("active flag = %q", first.ActiveFlag)
	}
	if want := []string{"CA-CHE-1.1", "CA-PRC-1.1"}; !reflect.DeepEqual(first.CapabilitiesRequired, want) {
		t.Fatalf("capabilities = %v, want %v", first.CapabilitiesRequired, want)
	}

	// Blank swimlane cell carries the previous group forward.
	second := pfs["PF-OPS-1.2"]
	if second.Swimlane != "OPERATIONAL" {
		t.Fatalf("carried swimlane = %q", second.Swimlane)
	}
	if want := []string{"PF-OPS-1.1"}; !reflect.DeepEqual(second.Dependencies, want) {
		t.Fatalf("explicit dependencies = %v, want %v", second.Dependencies, want)
	}

	odd := pfs["PF-ODD-1.3"]
	if want := []string{"PF-ODD-1.1", "PF-ODD-1.2"}; !reflect.DeepEqual(odd.Dependencies, want) {
		t.Fatalf("inferred dependencies = %v, want %v", odd.Dependencies, want)
	}
}

func TestParseProductFeaturesDuplicateLabelKeepsFirst(t *testing.T) {
	path := writeCSV(t, "pf.csv", `Swimlane,Label,Name,Platform,,,,Details,Next,,,
Operational,PF-OPS-1.1,First,truck,,,,,Y,,,
Operational,PF-OPS-1.1,Second,truck,,,,,Y,,,
`)
	var report domain.Report
	pfs, err := ParseProductFeatures(path, DefaultLayout(), &report)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pfs["PF-OPS-1.1"].Name != "First" {
		t.Fatalf("expected first occurrence to win, got %q", pfs["PF-OPS-1.1"].Name)
	}
	if !hasFinding(report, "duplicate_label") {
		t.Fatalf("expected duplicate_label finding, got %v", findingCodes(report))
	}
}

func TestParseMissingFileDegradesGracefully(t *testing.T) {
	var report domain.Report
	pfs, err := ParseProductFeatures(filepath.Join(t.TempDir(), "absent.csv"), DefaultLayout(), &report)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(pfs) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(pfs))
	}
	if !hasFinding(report, "input_missing") {
		t.Fatalf("expected input_missing finding, got %v", findingCodes(report))
	}
}

const caCSV = `Swimlane,Label,Capability,Platform,ODD,Environment,,,,Product Feature,,
Perception,CA-PRC-1.1,Obstacle detection,truck,PF-OPS-1.1,,,,,PF-ODD-1.3,,
,CA-PRC-1.1,Obstacle detection,truck,PF-OPS-1.2,,,,,,,
,CA-LOC-2.1,Yard localization,truck,,,,,,,,
`

func TestParseCapabilitiesAggregatesRows(t *testing.T) {
	path := writeCSV(t, "ca.csv", caCSV)
	var report domain.Report
	cas, err := ParseCapabilities(path, DefaultLayout(), &report)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cas) != 2 {
		t.Fatalf("expected 2 capabilities, got %d", len(cas))
	}

	prc := cas["CA-PRC-1.1"]
	if prc.Swimlane != "PERCEPTION" {
		t.Fatalf("swimlane = %q", prc.Swimlane)
	}
	want := []string{"PF-ODD-1.3", "PF-OPS-1.1", "PF-OPS-1.2"}
	if !reflect.DeepEqual(prc.ProductFeatures, want) {
		t.Fatalf("product features = %v, want %v", prc.ProductFeatures, want)
	}

	loc := cas["CA-LOC-2.1"]
	if loc.Swimlane != "PERCEPTION" {
		t.Fatalf("carried swimlane = %q", loc.Swimlane)
	}
	if len(loc.ProductFeatures) != 0 {
		t.Fatalf("expected no product features, got %v", loc.ProductFeatures)
	}
}

func TestParseCapabilitiesSkipsRowsWithoutLabel(t *testing.T) {
	csv := `Swimlane,Label,Capability,Platform,ODD,Environment,,,,Product Feature,,
Perception,CA-PRC-1.1,Obstacle detection,truck,,,,,,,,
,see above,Continuation note,truck,,,,,,,,
`
	path := writeCSV(t, "ca.csv", csv)
	var report domain.Report
	cas, err := ParseCapabilities(path, DefaultLayout(), &report)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cas) != 1 {
		t.Fatalf("expected 1 capability, got %d", len(cas))
	}
	skips := 0
	for _, f := range report.Findings {
		if f.Code == "row_skipped" && f.Severity == domain.SeverityInfo && f.Entity == domain.EntityCapability {
			skips++
		}
	}
	if skips != 1 {
		t.Fatalf("expected one row_skipped finding, got %d (%v)", skips, report.Findings)
	}
}

const tfCSV = `Capability,Tech,Date,,
,,TRL 4,TRL 7,TRL 9
Obstacle detection CA-PRC-1.1,TE-PRC-1.1 TE-PRC-1.2,01/15/2024,06/01/2024,
Yard localization CA-LOC-2.1,TE-PRC-1.2,garbage,,09/01/2024
`

func TestParseTechnicalFunctions(t *testing.T) {
	path := writeCSV(t, "tf.csv", tfCSV)
	var report domain.Report
	tfs, err := ParseTechnicalFunctions(path, DefaultLayout(), &report)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tfs) != 2 {
		t.Fatalf("expected 2 technical functions, got %d", len(tfs))
	}

	one := tfs["TE-PRC-1.1"]
	if want := []string{"CA-PRC-1.1"}; !reflect.DeepEqual(one.Capabilities, want) {
		t.Fatalf("capabilities = %v, want %v", one.Capabilities, want)
	}
	if one.DueDates["2024-01-15"] != 4 || one.DueDates["2024-06-01"] != 7 {
		t.Fatalf("due dates = %v", one.DueDates)
	}
	if one.PlannedStartDate != "2024-01-15" || one.PlannedEndDate != "2024-06-01" {
		t.Fatalf("planned range = [%s, %s]", one.PlannedStartDate, one.PlannedEndDate)
	}

	// The second row links TE-PRC-1.2 to a second capability and drops the
	// garbage date with a warning.
	two := tfs["TE-PRC-1.2"]
	if want := []string{"CA-LOC-2.1", "CA-PRC-1.1"}; !reflect.DeepEqual(two.Capabilities, want) {
		t.Fatalf("capabilities = %v, want %v", two.Capabilities, want)
	}
	if two.DueDates["2024-09-01"] != 9 {
		t.Fatalf("due dates = %v", two.DueDates)
	}
	if !hasFinding(report, "unparseable_date") {
		t.Fatalf("expected unparseable_date finding, got %v", findingCodes(report))
	}
}

func TestParseSpreadsheetDateFormats(t *testing.T) {
	formats := DefaultDateFormats
	cases := map[string]string{
		"2024-03-15": "2024-03-15",
		"03/15/2024": "2024-03-15",
		"2024/03/15": "2024-03-15",
		"03-15-2024": "2024-03-15",
	}
	for raw, want := range cases {
		got, ok := parseSpreadsheetDate(raw, formats)
		if !ok || got != want {
			t.Errorf("parseSpreadsheetDate(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
	if _, ok := parseSpreadsheetDate("not a date", formats); ok {
		t.Fatalf("expected failure for garbage input")
	}
	if _, ok := parseSpreadsheetDate("", formats); ok {
		t.Fatalf("expected failure for empty input")
	}
}
