package pipeline

import (
	"fmt"
	"sort"
	"time"

	"roadmapcore/pkg/domain"
)

// Assemble serialises the finalized maps into the versioned document: product
// features first, then capabilities, then technical functions, label-sorted
// within each kind, so a single-pass consumer never needs a forward reference.
// Every record carries operation create; update and delete intents are the
// upsert consumer's business.
func Assemble(pfs map[string]*domain.ProductFeature, cas map[string]*domain.Capability, tfs map[string]*domain.TechnicalFunction, now time.Time, createdBy string) domain.Document {
	doc := domain.Document{
		Metadata: domain.Metadata{
			Version:     domain.SchemaVersion,
			Description: "Comprehensive repository update for the product feature readiness database",
			CreatedBy:   createdBy,
			CreatedDate: now.Format("2006-01-02"),
			Notes:       "Generated from combined roadmap CSVs.",
		},
	}

	for _, label := range sortedKeys(pfs) {
		pf := pfs[label]
		doc.Entities = append(doc.Entities, domain.Record{
			Comment:              fmt.Sprintf("=== CREATING PRODUCT FEATURE: %s ===", pf.Name),
			EntityType:           domain.EntityProductFeature,
			Operation:            domain.OperationCreate,
			Name:                 pf.Name,
			Label:                pf.Label,
			Description:          pf.Description,
			VehicleType:          pf.VehicleType,
			Swimlane:             pf.Swimlane,
			TMOS:                 pf.TMOS,
			StatusRelativeToTMOS: domain.Float(pf.StatusRelativeToTMOS),
			PlannedStartDate:     pf.PlannedStartDate,
			PlannedEndDate:       pf.PlannedEndDate,
			ActiveFlag:           pf.ActiveFlag,
			CurrentTRL:           pf.CurrentTRL,
			CapabilitiesRequired: pf.CapabilitiesRequired,
			Dependencies:         pf.Dependencies,
			DocumentURL:          pf.DocumentURL,
		})
	}
	for _, label := range sortedKeys(cas) {
		ca := cas[label]
		doc.Entities = append(doc.Entities, domain.Record{
			Comment:                fmt.Sprintf("=== CREATING CAPABILITY: %s ===", ca.Name),
			EntityType:             domain.EntityCapability,
			Operation:              domain.OperationCreate,
			Name:                   ca.Name,
			Label:                  ca.Label,
			SuccessCriteria:        ca.SuccessCriteria,
			VehicleType:            ca.VehicleType,
			Swimlane:               ca.Swimlane,
			TMOS:                   ca.TMOS,
			ProgressRelativeToTMOS: domain.Float(ca.ProgressRelativeToTMOS),
			PlannedStartDate:       ca.PlannedStartDate,
			PlannedEndDate:         ca.PlannedEndDate,
			CurrentTRL:             ca.CurrentTRL,
			ProductFeatures:        ca.ProductFeatures,
			TechnicalFunctions:     ca.TechnicalFunctions,
		})
	}
	for _, label := range sortedKeys(tfs) {
		tf := tfs[label]
		doc.Entities = append(doc.Entities, domain.Record{
			Comment:                    fmt.Sprintf("=== CREATING TECHNICAL FUNCTION: %s ===", tf.Label),
			EntityType:                 domain.EntityTechnicalFunction,
			Operation:                  domain.OperationCreate,
			Name:                       tf.Name,
			Label:                      tf.Label,
			Description:                tf.Description,
			SuccessCriteria:            tf.SuccessCriteria,
			PlannedStartDate:           tf.PlannedStartDate,
			PlannedEndDate:             tf.PlannedEndDate,
			DueDates:                   tf.DueDates,
			CurrentTRL:                 tf.CurrentTRL,
			Capabilities:               tf.Capabilities,
			PrimaryProductFeature:      tf.PrimaryProductFeature,
			ProductFeatureDependencies: tf.ProductFeatureDependencies,
		})
	}
	return doc
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
