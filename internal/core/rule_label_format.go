package core

import (
	"context"
	"fmt"
	"regexp"
)

// Label patterns per entity kind. Technical function minors are optional
// because source spreadsheets carry labels like TE-GNC-3.
var (
	featureLabelPattern    = regexp.MustCompile(`^PF-[A-Z]+-\d+\.\d+$`)
	capabilityLabelPattern = regexp.MustCompile(`^CA-[A-Z]+-\d+\.\d+$`)
	functionLabelPattern   = regexp.MustCompile(`^TE-[A-Z]+-\d+(\.\d+)?$`)
)

// validLabel reports whether a label matches its kind's pattern.
func validLabel(entity EntityType, label string) bool {
	switch entity {
	case EntityProductFeature:
		return featureLabelPattern.MatchString(label)
	case EntityCapability:
		return capabilityLabelPattern.MatchString(label)
	case EntityTechnicalFunction:
		return functionLabelPattern.MatchString(label)
	}
	return false
}

// LabelFormatRule blocks commits that introduce or rename entities whose
// labels do not match their kind's pattern. Labels are the only join key, so
// a malformed label silently breaks every downstream link.
type LabelFormatRule struct{}

// Name implements Rule.
func (LabelFormatRule) Name() string { return "label_format" }

// Evaluate implements Rule.
func (LabelFormatRule) Evaluate(_ context.Context, _ RuleView, changes []Change) (Report, error) {
	var report Report
	block := func(entity EntityType, label string) {
		report.Add(Finding{
			Code:     "invalid_label",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("label %q does not match the %s pattern", label, entity),
			Entity:   entity,
			Label:    label,
		})
	}

	for _, change := range changes {
		if change.Action == OperationDelete {
			continue
		}
		switch after := change.After.(type) {
		case ProductFeature:
			if !featureLabelPattern.MatchString(after.Label) {
				block(EntityProductFeature, after.Label)
			}
		case Capability:
			if !capabilityLabelPattern.MatchString(after.Label) {
				block(EntityCapability, after.Label)
			}
		case TechnicalFunction:
			if !functionLabelPattern.MatchString(after.Label) {
				block(EntityTechnicalFunction, after.Label)
			}
		}
	}
	return report, nil
}
