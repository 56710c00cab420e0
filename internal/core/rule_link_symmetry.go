package core

import (
	"context"
	"fmt"
)

// LinkSymmetryRule reports one-way edges between product features and
// capabilities, and between capabilities and technical functions. Asymmetry
// is recoverable (ApplyDocument repairs it), so findings are warnings.
type LinkSymmetryRule struct{}

// Name implements Rule.
func (LinkSymmetryRule) Name() string { return "link_symmetry" }

// Evaluate implements Rule.
func (LinkSymmetryRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Report, error) {
	var report Report
	warn := func(entity EntityType, label, msg string) {
		report.Add(Finding{Code: "asymmetric_link", Severity: SeverityWarn, Message: msg, Entity: entity, Label: label})
	}

	for _, pf := range view.ListProductFeatures() {
		for _, caLabel := range pf.CapabilitiesRequired {
			ca, ok := view.FindCapability(caLabel)
			if !ok {
				continue
			}
			if !containsLabel(ca.ProductFeatures, pf.Label) {
				warn(EntityProductFeature, pf.Label, fmt.Sprintf("capability %s does not link back", caLabel))
			}
		}
	}
	for _, ca := range view.ListCapabilities() {
		for _, pfLabel := range ca.ProductFeatures {
			pf, ok := view.FindProductFeature(pfLabel)
			if !ok {
				continue
			}
			if !containsLabel(pf.CapabilitiesRequired, ca.Label) {
				warn(EntityCapability, ca.Label, fmt.Sprintf("product feature %s does not link back", pfLabel))
			}
		}
		for _, tfLabel := range ca.TechnicalFunctions {
			tf, ok := view.FindTechnicalFunction(tfLabel)
			if !ok {
				continue
			}
			if !containsLabel(tf.Capabilities, ca.Label) {
				warn(EntityCapability, ca.Label, fmt.Sprintf("technical function %s does not link back", tfLabel))
			}
		}
	}
	for _, tf := range view.ListTechnicalFunctions() {
		for _, caLabel := range tf.Capabilities {
			ca, ok := view.FindCapability(caLabel)
			if !ok {
				continue
			}
			if !containsLabel(ca.TechnicalFunctions, tf.Label) {
				warn(EntityTechnicalFunction, tf.Label, fmt.Sprintf("capability %s does not link back", caLabel))
			}
		}
	}
	return report, nil
}
