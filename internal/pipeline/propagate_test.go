package pipeline

import (
	"testing"
	"time"

	"roadmapcore/pkg/domain"
)

func TestPropagateDatesRollsUpRange(t *testing.T) {
	tfs := map[string]*domain.TechnicalFunction{
		"TE-PRC-1.1": {Label: "TE-PRC-1.1", PlannedStartDate: "2024-01-01", PlannedEndDate: "2024-06-01"},
		"TE-PRC-1.2": {Label: "TE-PRC-1.2", PlannedStartDate: "2024-03-15", PlannedEndDate: "2024-09-01"},
	}
	cas := map[string]*domain.Capability{
		"CA-PRC-1.1": {Label: "CA-PRC-1.1", TechnicalFunctions: []string{"TE-PRC-1.1", "TE-PRC-1.2"}},
	}
	pfs := map[string]*domain.ProductFeature{
		"PF-OPS-1.1": {Label: "PF-OPS-1.1", CapabilitiesRequired: []string{"CA-PRC-1.1"}},
	}

	PropagateDates(pfs, cas, tfs)

	ca := cas["CA-PRC-1.1"]
	if ca.PlannedStartDate != "2024-01-01" || ca.PlannedEndDate != "2024-09-01" {
		t.Fatalf("capability range = [%s, %s]", ca.PlannedStartDate, ca.PlannedEndDate)
	}
	pf := pfs["PF-OPS-1.1"]
	if pf.PlannedStartDate != "2024-01-01" || pf.PlannedEndDate != "2024-09-01" {
		t.Fatalf("product feature range = [%s, %s]", pf.PlannedStartDate, pf.PlannedEndDate)
	}
}

func TestPropagateDatesSkipsBlankChildren(t *testing.T) {
	tfs := map[string]*domain.TechnicalFunction{
		"TE-PRC-1.1": {Label: "TE-PRC-1.1"},
	}
	cas := map[string]*domain.Capability{
		"CA-PRC-1.1": {Label: "CA-PRC-1.1", TechnicalFunctions: []string{"TE-PRC-1.1"}},
	}
	PropagateDates(map[string]*domain.ProductFeature{}, cas, tfs)

	ca := cas["CA-PRC-1.1"]
	if ca.PlannedStartDate != "" || ca.PlannedEndDate != "" {
		t.Fatalf("blank children must leave the aggregate blank, got [%s, %s]", ca.PlannedStartDate, ca.PlannedEndDate)
	}
}

func TestCurrentTRLHighestDueLevel(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	due := map[string]int{
		"2024-01-15": 4,
		"2024-06-01": 7,
		"2024-12-01": 9,
	}
	if got := currentTRL(due, now); got != 7 {
		t.Fatalf("currentTRL = %d, want 7", got)
	}
	if got := currentTRL(nil, now); got != domain.TRLBaseline {
		t.Fatalf("empty due dates should be baseline, got %d", got)
	}
	if got := currentTRL(map[string]int{"2030-01-01": 9}, now); got != domain.TRLBaseline {
		t.Fatalf("future-only due dates should be baseline, got %d", got)
	}
}

func TestPropagateTRLWeakestLink(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	tfs := map[string]*domain.TechnicalFunction{
		"TE-A-1.1": {Label: "TE-A-1.1", DueDates: map[string]int{"2024-01-01": 3}},
		"TE-A-1.2": {Label: "TE-A-1.2", DueDates: map[string]int{"2024-01-01": 4, "2024-06-01": 7}},
		"TE-A-1.3": {Label: "TE-A-1.3", DueDates: map[string]int{"2030-01-01": 9}},
	}
	cas := map[string]*domain.Capability{
		"CA-A-1.1": {Label: "CA-A-1.1", TechnicalFunctions: []string{"TE-A-1.1", "TE-A-1.2", "TE-A-1.3"}},
	}
	pfs := map[string]*domain.ProductFeature{
		"PF-A-1.1": {Label: "PF-A-1.1", CapabilitiesRequired: []string{"CA-A-1.1"}},
	}

	var report domain.Report
	PropagateTRL(now, pfs, cas, tfs, &report)

	// Linked functions sit at TRL 3, 7 and 1; the capability is bottlenecked
	// by the least mature one.
	if tfs["TE-A-1.2"].CurrentTRL != 7 {
		t.Fatalf("TE-A-1.2 TRL = %d", tfs["TE-A-1.2"].CurrentTRL)
	}
	if cas["CA-A-1.1"].CurrentTRL != 1 {
		t.Fatalf("capability TRL = %d, want 1", cas["CA-A-1.1"].CurrentTRL)
	}
	if pfs["PF-A-1.1"].CurrentTRL != 1 {
		t.Fatalf("product feature TRL = %d, want 1", pfs["PF-A-1.1"].CurrentTRL)
	}
}

func TestPropagateTRLChildlessDefaultsToBaseline(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	cas := map[string]*domain.Capability{
		"CA-A-1.1": {Label: "CA-A-1.1"},
	}
	pfs := map[string]*domain.ProductFeature{
		"PF-A-1.1": {Label: "PF-A-1.1"},
	}

	var report domain.Report
	PropagateTRL(now, pfs, cas, map[string]*domain.TechnicalFunction{}, &report)

	if cas["CA-A-1.1"].CurrentTRL != domain.TRLBaseline {
		t.Fatalf("capability TRL = %d", cas["CA-A-1.1"].CurrentTRL)
	}
	if pfs["PF-A-1.1"].CurrentTRL != domain.TRLBaseline {
		t.Fatalf("product feature TRL = %d", pfs["PF-A-1.1"].CurrentTRL)
	}
	if !hasFinding(report, "no_linked_children") {
		t.Fatalf("expected no_linked_children findings, got %v", findingCodes(report))
	}
	if len(report.Findings) != 2 {
		t.Fatalf("expected one finding per childless node, got %d", len(report.Findings))
	}
}
