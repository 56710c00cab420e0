package pipeline

import (
	"fmt"

	"roadmapcore/pkg/domain"
)

// ReconcileFeatureCapabilityLinks completes the PF to CA edges bilaterally:
// every capability a product feature requires lists that product feature back,
// and every product feature a capability lists requires that capability.
// References to labels absent from the other map produce warn findings and no
// edge. Idempotent.
func ReconcileFeatureCapabilityLinks(pfs map[string]*domain.ProductFeature, cas map[string]*domain.Capability, report *domain.Report) {
	for label, pf := range pfs {
		for _, caLabel := range pf.CapabilitiesRequired {
			ca, ok := cas[caLabel]
			if !ok {
				report.Add(domain.Finding{
					Code:     "dangling_reference",
					Severity: domain.SeverityWarn,
					Entity:   domain.EntityProductFeature,
					Label:    label,
					Message:  fmt.Sprintf("required capability %s not present in capability data", caLabel),
				})
				continue
			}
			ca.ProductFeatures = mergeCodes(ca.ProductFeatures, []string{label})
		}
	}
	for label, ca := range cas {
		for _, pfLabel := range ca.ProductFeatures {
			pf, ok := pfs[pfLabel]
			if !ok {
				report.Add(domain.Finding{
					Code:     "dangling_reference",
					Severity: domain.SeverityWarn,
					Entity:   domain.EntityCapability,
					Label:    label,
					Message:  fmt.Sprintf("linked product feature %s not present in product feature data", pfLabel),
				})
				continue
			}
			pf.CapabilitiesRequired = mergeCodes(pf.CapabilitiesRequired, []string{label})
		}
	}
}

// ReconcileCapabilityFunctionLinks completes the CA to TF edges bilaterally
// in the same manner as ReconcileFeatureCapabilityLinks.
func ReconcileCapabilityFunctionLinks(cas map[string]*domain.Capability, tfs map[string]*domain.TechnicalFunction, report *domain.Report) {
	for label, tf := range tfs {
		for _, caLabel := range tf.Capabilities {
			ca, ok := cas[caLabel]
			if !ok {
				report.Add(domain.Finding{
					Code:     "dangling_reference",
					Severity: domain.SeverityWarn,
					Entity:   domain.EntityTechnicalFunction,
					Label:    label,
					Message:  fmt.Sprintf("linked capability %s not present in capability data", caLabel),
				})
				continue
			}
			ca.TechnicalFunctions = mergeCodes(ca.TechnicalFunctions, []string{label})
		}
	}
	for label, ca := range cas {
		for _, tfLabel := range ca.TechnicalFunctions {
			tf, ok := tfs[tfLabel]
			if !ok {
				report.Add(domain.Finding{
					Code:     "dangling_reference",
					Severity: domain.SeverityWarn,
					Entity:   domain.EntityCapability,
					Label:    label,
					Message:  fmt.Sprintf("linked technical function %s not present in technical function data", tfLabel),
				})
				continue
			}
			tf.Capabilities = mergeCodes(tf.Capabilities, []string{label})
		}
	}
}

// ResolveFunctionFeatureLinks traces the product features reachable from each
// technical function through its capabilities. A single reachable PF becomes
// the primary product feature; several become the dependency list. A function
// with no reachable product feature stays unlinked and raises a warn finding
// instead of being given a fabricated relationship.
func ResolveFunctionFeatureLinks(pfs map[string]*domain.ProductFeature, cas map[string]*domain.Capability, tfs map[string]*domain.TechnicalFunction, report *domain.Report) {
	caToFeatures := make(map[string][]string, len(cas))
	for label, ca := range cas {
		for _, pfLabel := range ca.ProductFeatures {
			if _, ok := pfs[pfLabel]; ok {
				caToFeatures[label] = mergeCodes(caToFeatures[label], []string{pfLabel})
			}
		}
	}

	for label, tf := range tfs {
		var reachable []string
		for _, caLabel := range tf.Capabilities {
			reachable = mergeCodes(reachable, caToFeatures[caLabel])
		}
		switch len(reachable) {
		case 0:
			tf.PrimaryProductFeature = ""
			tf.ProductFeatureDependencies = nil
			report.Add(domain.Finding{
				Code:     "unlinked_function",
				Severity: domain.SeverityWarn,
				Entity:   domain.EntityTechnicalFunction,
				Label:    label,
				Message:  "no product feature reachable through linked capabilities",
			})
		case 1:
			tf.PrimaryProductFeature = reachable[0]
			tf.ProductFeatureDependencies = nil
		default:
			tf.PrimaryProductFeature = ""
			tf.ProductFeatureDependencies = reachable
		}
	}
}
