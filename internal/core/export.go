package core

import (
	"context"
	"fmt"

	"roadmapcore/pkg/domain"
)

// ExportDocument snapshots the current store state into a roadmap document of
// create records, ordered product features first, then capabilities, then
// technical functions. Applying the export to an empty store reproduces the
// state it was taken from.
func (s *Service) ExportDocument(ctx context.Context, createdBy string) (Document, error) {
	if createdBy == "" {
		createdBy = "roadmap-export"
	}
	now := s.nowFn()

	doc := Document{
		Metadata: Metadata{
			Version:     domain.SchemaVersion,
			Description: "Current state export of the product feature readiness database",
			CreatedBy:   createdBy,
			CreatedDate: now.Format("2006-01-02"),
			Notes:       "Exported from the live entity store.",
		},
	}

	err := s.store.View(ctx, func(view TransactionView) error {
		for _, pf := range view.ListProductFeatures() {
			doc.Entities = append(doc.Entities, featureRecord(pf))
		}
		for _, ca := range view.ListCapabilities() {
			doc.Entities = append(doc.Entities, capabilityRecord(ca))
		}
		for _, tf := range view.ListTechnicalFunctions() {
			doc.Entities = append(doc.Entities, functionRecord(tf))
		}
		return nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("export state: %w", err)
	}

	s.opts.logger.Debug("export complete", "entities", len(doc.Entities))
	return doc, nil
}

func featureRecord(pf ProductFeature) Record {
	return Record{
		Comment:              fmt.Sprintf("=== CREATING PRODUCT FEATURE: %s ===", pf.Name),
		EntityType:           EntityProductFeature,
		Operation:            OperationCreate,
		Name:                 pf.Name,
		Label:                pf.Label,
		Description:          pf.Description,
		Swimlane:             pf.Swimlane,
		VehicleType:          pf.VehicleType,
		TMOS:                 pf.TMOS,
		StatusRelativeToTMOS: domain.Float(pf.StatusRelativeToTMOS),
		PlannedStartDate:     pf.PlannedStartDate,
		PlannedEndDate:       pf.PlannedEndDate,
		ActiveFlag:           pf.ActiveFlag,
		CurrentTRL:           pf.CurrentTRL,
		DocumentURL:          pf.DocumentURL,
		CapabilitiesRequired: append([]string(nil), pf.CapabilitiesRequired...),
		Dependencies:         append([]string(nil), pf.Dependencies...),
	}
}

func capabilityRecord(ca Capability) Record {
	return Record{
		Comment:                fmt.Sprintf("=== CREATING CAPABILITY: %s ===", ca.Name),
		EntityType:             EntityCapability,
		Operation:              OperationCreate,
		Name:                   ca.Name,
		Label:                  ca.Label,
		Swimlane:               ca.Swimlane,
		VehicleType:            ca.VehicleType,
		SuccessCriteria:        ca.SuccessCriteria,
		TMOS:                   ca.TMOS,
		ProgressRelativeToTMOS: domain.Float(ca.ProgressRelativeToTMOS),
		PlannedStartDate:       ca.PlannedStartDate,
		PlannedEndDate:         ca.PlannedEndDate,
		CurrentTRL:             ca.CurrentTRL,
		ProductFeatures:        append([]string(nil), ca.ProductFeatures...),
		TechnicalFunctions:     append([]string(nil), ca.TechnicalFunctions...),
	}
}

func functionRecord(tf TechnicalFunction) Record {
	rec := Record{
		Comment:                    fmt.Sprintf("=== CREATING TECHNICAL FUNCTION: %s ===", tf.Name),
		EntityType:                 EntityTechnicalFunction,
		Operation:                  OperationCreate,
		Name:                       tf.Name,
		Label:                      tf.Label,
		Description:                tf.Description,
		SuccessCriteria:            tf.SuccessCriteria,
		PlannedStartDate:           tf.PlannedStartDate,
		PlannedEndDate:             tf.PlannedEndDate,
		CurrentTRL:                 tf.CurrentTRL,
		Capabilities:               append([]string(nil), tf.Capabilities...),
		PrimaryProductFeature:      tf.PrimaryProductFeature,
		ProductFeatureDependencies: append([]string(nil), tf.ProductFeatureDependencies...),
	}
	if len(tf.DueDates) > 0 {
		rec.DueDates = make(map[string]int, len(tf.DueDates))
		for date, level := range tf.DueDates {
			rec.DueDates[date] = level
		}
	}
	return rec
}
