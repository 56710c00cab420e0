package core

import (
	"context"
	"fmt"
)

// DateRollupRule checks that derived planned dates still bracket their
// children: a capability's range must cover its technical functions, and a
// product feature's range must cover its capabilities. ISO dates compare
// lexically, so no parsing is needed.
type DateRollupRule struct{}

// Name implements Rule.
func (DateRollupRule) Name() string { return "date_rollup" }

// Evaluate implements Rule.
func (DateRollupRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Report, error) {
	var report Report
	warn := func(entity EntityType, label, child, field string) {
		report.Add(Finding{
			Code:     "date_rollup_violation",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("%s of %s falls outside the planned range", field, child),
			Entity:   entity,
			Label:    label,
		})
	}

	for _, ca := range view.ListCapabilities() {
		if ca.PlannedStartDate == "" && ca.PlannedEndDate == "" {
			continue
		}
		for _, tfLabel := range ca.TechnicalFunctions {
			tf, ok := view.FindTechnicalFunction(tfLabel)
			if !ok {
				continue
			}
			if tf.PlannedStartDate != "" && ca.PlannedStartDate != "" && tf.PlannedStartDate < ca.PlannedStartDate {
				warn(EntityCapability, ca.Label, tfLabel, "planned_start_date")
			}
			if tf.PlannedEndDate != "" && ca.PlannedEndDate != "" && tf.PlannedEndDate > ca.PlannedEndDate {
				warn(EntityCapability, ca.Label, tfLabel, "planned_end_date")
			}
		}
	}
	for _, pf := range view.ListProductFeatures() {
		if pf.PlannedStartDate == "" && pf.PlannedEndDate == "" {
			continue
		}
		for _, caLabel := range pf.CapabilitiesRequired {
			ca, ok := view.FindCapability(caLabel)
			if !ok {
				continue
			}
			if ca.PlannedStartDate != "" && pf.PlannedStartDate != "" && ca.PlannedStartDate < pf.PlannedStartDate {
				warn(EntityProductFeature, pf.Label, caLabel, "planned_start_date")
			}
			if ca.PlannedEndDate != "" && pf.PlannedEndDate != "" && ca.PlannedEndDate > pf.PlannedEndDate {
				warn(EntityProductFeature, pf.Label, caLabel, "planned_end_date")
			}
		}
	}
	return report, nil
}
