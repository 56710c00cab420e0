package pipeline

import (
	"time"

	"roadmapcore/pkg/domain"
)

// dateRange folds a set of child date pairs into the earliest start and
// latest end. Children without a parseable date are skipped; if none has one
// the aggregate stays blank.
type dateRange struct {
	start string
	end   string
}

func (r *dateRange) observe(start, end string) {
	if start != "" && (r.start == "" || start < r.start) {
		r.start = start
	}
	if end != "" && (r.end == "" || end > r.end) {
		r.end = end
	}
}

// PropagateDates rolls planned date ranges bottom-up: capability dates become
// the min/max over linked technical functions, product feature dates the
// min/max over required capabilities. ISO dates compare correctly as strings,
// so the fold works on the stored form directly.
func PropagateDates(pfs map[string]*domain.ProductFeature, cas map[string]*domain.Capability, tfs map[string]*domain.TechnicalFunction) {
	for _, ca := range cas {
		var r dateRange
		for _, tfLabel := range ca.TechnicalFunctions {
			if tf, ok := tfs[tfLabel]; ok {
				r.observe(tf.PlannedStartDate, tf.PlannedEndDate)
			}
		}
		if r.start != "" {
			ca.PlannedStartDate = r.start
		}
		if r.end != "" {
			ca.PlannedEndDate = r.end
		}
	}
	for _, pf := range pfs {
		var r dateRange
		for _, caLabel := range pf.CapabilitiesRequired {
			if ca, ok := cas[caLabel]; ok {
				r.observe(ca.PlannedStartDate, ca.PlannedEndDate)
			}
		}
		if r.start != "" {
			pf.PlannedStartDate = r.start
		}
		if r.end != "" {
			pf.PlannedEndDate = r.end
		}
	}
}

// currentTRL returns the highest level whose due date is on or before now.
// With no passed due date the function is at baseline.
func currentTRL(dueDates map[string]int, now time.Time) int {
	today := now.Format("2006-01-02")
	level := domain.TRLBaseline
	for date, l := range dueDates {
		if date <= today && l > level {
			level = l
		}
	}
	return level
}

// PropagateTRL computes readiness bottom-up against a single captured now.
// Technical function TRL is the highest level already due; capability and
// product feature TRL is the minimum over linked children (weakest link).
// Nodes with no linked children default to baseline and raise a warn finding.
func PropagateTRL(now time.Time, pfs map[string]*domain.ProductFeature, cas map[string]*domain.Capability, tfs map[string]*domain.TechnicalFunction, report *domain.Report) {
	for _, tf := range tfs {
		tf.CurrentTRL = currentTRL(tf.DueDates, now)
	}
	for label, ca := range cas {
		min := 0
		for _, tfLabel := range ca.TechnicalFunctions {
			tf, ok := tfs[tfLabel]
			if !ok {
				continue
			}
			if min == 0 || tf.CurrentTRL < min {
				min = tf.CurrentTRL
			}
		}
		if min == 0 {
			ca.CurrentTRL = domain.TRLBaseline
			report.Add(domain.Finding{
				Code:     "no_linked_children",
				Severity: domain.SeverityWarn,
				Entity:   domain.EntityCapability,
				Label:    label,
				Message:  "no linked technical functions, readiness defaulted to baseline",
			})
			continue
		}
		ca.CurrentTRL = min
	}
	for label, pf := range pfs {
		min := 0
		for _, caLabel := range pf.CapabilitiesRequired {
			ca, ok := cas[caLabel]
			if !ok {
				continue
			}
			if min == 0 || ca.CurrentTRL < min {
				min = ca.CurrentTRL
			}
		}
		if min == 0 {
			pf.CurrentTRL = domain.TRLBaseline
			report.Add(domain.Finding{
				Code:     "no_linked_children",
				Severity: domain.SeverityWarn,
				Entity:   domain.EntityProductFeature,
				Label:    label,
				Message:  "no required capabilities, readiness defaulted to baseline",
			})
			continue
		}
		pf.CurrentTRL = min
	}
}
