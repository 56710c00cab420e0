package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"roadmapcore/pkg/domain"
)

// ApplySummary counts the effects of a document application.
type ApplySummary struct {
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Deleted       int `json:"deleted"`
	Skipped       int `json:"skipped"`
	LinksRepaired int `json:"links_repaired"`
}

// ApplyDocument validates a roadmap document and applies its records inside a
// single transaction: creates skip existing labels, updates and deletes
// resolve by label with a name fallback, and a final pass restores missing
// bilateral feature/capability and capability/function edges. Per-record
// problems become findings; only transaction failures abort the whole
// document, so re-applying the same document is safe.
func (s *Service) ApplyDocument(ctx context.Context, doc Document) (ApplySummary, Report, error) {
	var summary ApplySummary
	var prepared Report

	if doc.Metadata.Version != "" && doc.Metadata.Version != domain.SchemaVersion {
		prepared.Add(Finding{
			Code:     "schema_version_mismatch",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("document version %q, expected %q", doc.Metadata.Version, domain.SchemaVersion),
		})
	}

	records := make([]Record, 0, len(doc.Entities))
	for i, rec := range doc.Entities {
		normalized, findings, ok := normalizeRecord(rec, i)
		prepared.Findings = append(prepared.Findings, findings...)
		if !ok {
			summary.Skipped++
			continue
		}
		records = append(records, normalized)
	}

	report, err := s.run(ctx, "apply_document", nil, func(tx Transaction) error {
		for _, rec := range records {
			if err := s.applyRecord(tx, rec, &summary, &prepared); err != nil {
				return err
			}
		}
		repaired, findings := repairLinks(tx)
		summary.LinksRepaired += repaired
		prepared.Findings = append(prepared.Findings, findings...)
		return nil
	})
	prepared.Merge(report)
	if err != nil {
		// The transaction rolled back; none of the counted mutations landed.
		return ApplySummary{}, prepared, err
	}
	return summary, prepared, nil
}

// normalizeRecord validates a record and scrubs unusable fields. It returns
// ok=false when the record cannot be applied at all.
func normalizeRecord(rec Record, index int) (Record, []Finding, bool) {
	var findings []Finding
	warn := func(code, msg string) {
		findings = append(findings, Finding{Code: code, Severity: SeverityWarn, Message: msg, Entity: rec.EntityType, Label: rec.Label})
	}

	switch rec.EntityType {
	case EntityProductFeature, EntityCapability, EntityTechnicalFunction:
	default:
		warn("invalid_entity_type", fmt.Sprintf("record %d has unknown entity_type %q", index, rec.EntityType))
		return rec, findings, false
	}
	switch rec.Operation {
	case OperationCreate, OperationUpdate, OperationDelete:
	default:
		warn("invalid_operation", fmt.Sprintf("record %d has unknown operation %q", index, rec.Operation))
		return rec, findings, false
	}
	if rec.Operation == OperationCreate && (rec.Label == "" || rec.Name == "") {
		warn("missing_identity", fmt.Sprintf("record %d create requires label and name", index))
		return rec, findings, false
	}
	if rec.Label == "" && rec.Name == "" {
		warn("missing_identity", fmt.Sprintf("record %d has neither label nor name", index))
		return rec, findings, false
	}
	// Creates introduce new labels, so a malformed one would block the whole
	// transaction under the label format rule. Drop the record here instead;
	// updates and deletes only reference existing labels and miss harmlessly.
	if rec.Operation == OperationCreate && !validLabel(rec.EntityType, rec.Label) {
		warn("invalid_label", fmt.Sprintf("label %q does not match the %s pattern", rec.Label, rec.EntityType))
		return rec, findings, false
	}

	if rec.PlannedStartDate != "" && !validISODate(rec.PlannedStartDate) {
		warn("invalid_date", fmt.Sprintf("planned_start_date %q is not an ISO date", rec.PlannedStartDate))
		rec.PlannedStartDate = ""
	}
	if rec.PlannedEndDate != "" && !validISODate(rec.PlannedEndDate) {
		warn("invalid_date", fmt.Sprintf("planned_end_date %q is not an ISO date", rec.PlannedEndDate))
		rec.PlannedEndDate = ""
	}
	if rec.StatusRelativeToTMOS != nil && (*rec.StatusRelativeToTMOS < 0 || *rec.StatusRelativeToTMOS > 100) {
		warn("invalid_percent", fmt.Sprintf("status_relative_to_tmos %v outside 0-100", *rec.StatusRelativeToTMOS))
		rec.StatusRelativeToTMOS = nil
	}
	if rec.ProgressRelativeToTMOS != nil && (*rec.ProgressRelativeToTMOS < 0 || *rec.ProgressRelativeToTMOS > 100) {
		warn("invalid_percent", fmt.Sprintf("progress_relative_to_tmos %v outside 0-100", *rec.ProgressRelativeToTMOS))
		rec.ProgressRelativeToTMOS = nil
	}
	if len(rec.DueDates) > 0 {
		cleaned := make(map[string]int, len(rec.DueDates))
		for date, level := range rec.DueDates {
			if !validISODate(date) {
				warn("invalid_date", fmt.Sprintf("due date %q is not an ISO date", date))
				continue
			}
			cleaned[date] = level
		}
		rec.DueDates = cleaned
	}
	return rec, findings, true
}

func validISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func (s *Service) applyRecord(tx Transaction, rec Record, summary *ApplySummary, report *Report) error {
	switch rec.EntityType {
	case EntityProductFeature:
		return applyFeatureRecord(tx, rec, summary, report)
	case EntityCapability:
		return applyCapabilityRecord(tx, rec, summary, report)
	case EntityTechnicalFunction:
		return applyFunctionRecord(tx, rec, summary, report)
	}
	return nil
}

func skipFinding(rec Record, code, msg string) Finding {
	return Finding{Code: code, Severity: SeverityWarn, Message: msg, Entity: rec.EntityType, Label: rec.Label}
}

func applyFeatureRecord(tx Transaction, rec Record, summary *ApplySummary, report *Report) error {
	resolve := func() (ProductFeature, bool) {
		if rec.Label != "" {
			if pf, ok := tx.FindProductFeature(rec.Label); ok {
				return pf, true
			}
		}
		if rec.Name != "" {
			if pf, ok := tx.FindProductFeatureByName(rec.Name); ok {
				return pf, true
			}
		}
		return ProductFeature{}, false
	}

	switch rec.Operation {
	case OperationCreate:
		if _, ok := tx.FindProductFeature(rec.Label); ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "already_exists", fmt.Sprintf("product feature %s already exists", rec.Label)))
			return nil
		}
		if _, err := tx.CreateProductFeature(featureFromRecord(rec)); err != nil {
			return err
		}
		summary.Created++
	case OperationUpdate:
		existing, ok := resolve()
		if !ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "not_found", fmt.Sprintf("product feature %s not found for update", recordKey(rec))))
			return nil
		}
		if _, err := tx.UpdateProductFeature(existing.Label, func(pf *ProductFeature) error {
			mergeFeatureRecord(pf, rec)
			return nil
		}); err != nil {
			return err
		}
		summary.Updated++
	case OperationDelete:
		existing, ok := resolve()
		if !ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "not_found", fmt.Sprintf("product feature %s not found for delete", recordKey(rec))))
			return nil
		}
		if err := tx.DeleteProductFeature(existing.Label); err != nil {
			return err
		}
		summary.Deleted++
	}
	return nil
}

func applyCapabilityRecord(tx Transaction, rec Record, summary *ApplySummary, report *Report) error {
	resolve := func() (Capability, bool) {
		if rec.Label != "" {
			if ca, ok := tx.FindCapability(rec.Label); ok {
				return ca, true
			}
		}
		if rec.Name != "" {
			if ca, ok := tx.FindCapabilityByName(rec.Name); ok {
				return ca, true
			}
		}
		return Capability{}, false
	}

	switch rec.Operation {
	case OperationCreate:
		if _, ok := tx.FindCapability(rec.Label); ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "already_exists", fmt.Sprintf("capability %s already exists", rec.Label)))
			return nil
		}
		if _, err := tx.CreateCapability(capabilityFromRecord(rec)); err != nil {
			return err
		}
		summary.Created++
	case OperationUpdate:
		existing, ok := resolve()
		if !ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "not_found", fmt.Sprintf("capability %s not found for update", recordKey(rec))))
			return nil
		}
		if _, err := tx.UpdateCapability(existing.Label, func(ca *Capability) error {
			mergeCapabilityRecord(ca, rec)
			return nil
		}); err != nil {
			return err
		}
		summary.Updated++
	case OperationDelete:
		existing, ok := resolve()
		if !ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "not_found", fmt.Sprintf("capability %s not found for delete", recordKey(rec))))
			return nil
		}
		if err := tx.DeleteCapability(existing.Label); err != nil {
			return err
		}
		summary.Deleted++
	}
	return nil
}

func applyFunctionRecord(tx Transaction, rec Record, summary *ApplySummary, report *Report) error {
	resolve := func() (TechnicalFunction, bool) {
		if rec.Label != "" {
			if tf, ok := tx.FindTechnicalFunction(rec.Label); ok {
				return tf, true
			}
		}
		if rec.Name != "" {
			if tf, ok := tx.FindTechnicalFunctionByName(rec.Name); ok {
				return tf, true
			}
		}
		return TechnicalFunction{}, false
	}

	switch rec.Operation {
	case OperationCreate:
		if _, ok := tx.FindTechnicalFunction(rec.Label); ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "already_exists", fmt.Sprintf("technical function %s already exists", rec.Label)))
			return nil
		}
		if _, err := tx.CreateTechnicalFunction(functionFromRecord(rec)); err != nil {
			return err
		}
		summary.Created++
	case OperationUpdate:
		existing, ok := resolve()
		if !ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "not_found", fmt.Sprintf("technical function %s not found for update", recordKey(rec))))
			return nil
		}
		if _, err := tx.UpdateTechnicalFunction(existing.Label, func(tf *TechnicalFunction) error {
			mergeFunctionRecord(tf, rec)
			return nil
		}); err != nil {
			return err
		}
		summary.Updated++
	case OperationDelete:
		existing, ok := resolve()
		if !ok {
			summary.Skipped++
			report.Add(skipFinding(rec, "not_found", fmt.Sprintf("technical function %s not found for delete", recordKey(rec))))
			return nil
		}
		if err := tx.DeleteTechnicalFunction(existing.Label); err != nil {
			return err
		}
		summary.Deleted++
	}
	return nil
}

func recordKey(rec Record) string {
	if rec.Label != "" {
		return rec.Label
	}
	return rec.Name
}

func featureFromRecord(rec Record) ProductFeature {
	pf := ProductFeature{
		Label:                rec.Label,
		Name:                 rec.Name,
		Description:          rec.Description,
		Swimlane:             rec.Swimlane,
		VehicleType:          rec.VehicleType,
		TMOS:                 rec.TMOS,
		PlannedStartDate:     rec.PlannedStartDate,
		PlannedEndDate:       rec.PlannedEndDate,
		ActiveFlag:           rec.ActiveFlag,
		CurrentTRL:           rec.CurrentTRL,
		CapabilitiesRequired: append([]string(nil), rec.CapabilitiesRequired...),
		Dependencies:         append([]string(nil), rec.Dependencies...),
		DocumentURL:          rec.DocumentURL,
	}
	if rec.StatusRelativeToTMOS != nil {
		pf.StatusRelativeToTMOS = *rec.StatusRelativeToTMOS
	}
	return pf
}

// mergeFeatureRecord copies the populated record fields onto an existing
// entity; zero-valued fields leave the stored value untouched.
func mergeFeatureRecord(pf *ProductFeature, rec Record) {
	if rec.Name != "" {
		pf.Name = rec.Name
	}
	if rec.Description != "" {
		pf.Description = rec.Description
	}
	if rec.Swimlane != "" {
		pf.Swimlane = rec.Swimlane
	}
	if rec.VehicleType != "" {
		pf.VehicleType = rec.VehicleType
	}
	if rec.TMOS != "" {
		pf.TMOS = rec.TMOS
	}
	if rec.StatusRelativeToTMOS != nil {
		pf.StatusRelativeToTMOS = *rec.StatusRelativeToTMOS
	}
	if rec.PlannedStartDate != "" {
		pf.PlannedStartDate = rec.PlannedStartDate
	}
	if rec.PlannedEndDate != "" {
		pf.PlannedEndDate = rec.PlannedEndDate
	}
	if rec.ActiveFlag != "" {
		pf.ActiveFlag = rec.ActiveFlag
	}
	if rec.CurrentTRL != 0 {
		pf.CurrentTRL = rec.CurrentTRL
	}
	if rec.CapabilitiesRequired != nil {
		pf.CapabilitiesRequired = append([]string(nil), rec.CapabilitiesRequired...)
	}
	if rec.Dependencies != nil {
		pf.Dependencies = append([]string(nil), rec.Dependencies...)
	}
	if rec.DocumentURL != "" {
		pf.DocumentURL = rec.DocumentURL
	}
}

func capabilityFromRecord(rec Record) Capability {
	ca := Capability{
		Label:              rec.Label,
		Name:               rec.Name,
		Swimlane:           rec.Swimlane,
		VehicleType:        rec.VehicleType,
		SuccessCriteria:    rec.SuccessCriteria,
		TMOS:               rec.TMOS,
		PlannedStartDate:   rec.PlannedStartDate,
		PlannedEndDate:     rec.PlannedEndDate,
		CurrentTRL:         rec.CurrentTRL,
		ProductFeatures:    append([]string(nil), rec.ProductFeatures...),
		TechnicalFunctions: append([]string(nil), rec.TechnicalFunctions...),
	}
	if rec.ProgressRelativeToTMOS != nil {
		ca.ProgressRelativeToTMOS = *rec.ProgressRelativeToTMOS
	}
	return ca
}

func mergeCapabilityRecord(ca *Capability, rec Record) {
	if rec.Name != "" {
		ca.Name = rec.Name
	}
	if rec.Swimlane != "" {
		ca.Swimlane = rec.Swimlane
	}
	if rec.VehicleType != "" {
		ca.VehicleType = rec.VehicleType
	}
	if rec.SuccessCriteria != "" {
		ca.SuccessCriteria = rec.SuccessCriteria
	}
	if rec.TMOS != "" {
		ca.TMOS = rec.TMOS
	}
	if rec.ProgressRelativeToTMOS != nil {
		ca.ProgressRelativeToTMOS = *rec.ProgressRelativeToTMOS
	}
	if rec.PlannedStartDate != "" {
		ca.PlannedStartDate = rec.PlannedStartDate
	}
	if rec.PlannedEndDate != "" {
		ca.PlannedEndDate = rec.PlannedEndDate
	}
	if rec.CurrentTRL != 0 {
		ca.CurrentTRL = rec.CurrentTRL
	}
	if rec.ProductFeatures != nil {
		ca.ProductFeatures = append([]string(nil), rec.ProductFeatures...)
	}
	if rec.TechnicalFunctions != nil {
		ca.TechnicalFunctions = append([]string(nil), rec.TechnicalFunctions...)
	}
}

func functionFromRecord(rec Record) TechnicalFunction {
	tf := TechnicalFunction{
		Label:                      rec.Label,
		Name:                       rec.Name,
		Description:                rec.Description,
		SuccessCriteria:            rec.SuccessCriteria,
		PlannedStartDate:           rec.PlannedStartDate,
		PlannedEndDate:             rec.PlannedEndDate,
		CurrentTRL:                 rec.CurrentTRL,
		Capabilities:               append([]string(nil), rec.Capabilities...),
		PrimaryProductFeature:      rec.PrimaryProductFeature,
		ProductFeatureDependencies: append([]string(nil), rec.ProductFeatureDependencies...),
	}
	if len(rec.DueDates) > 0 {
		tf.DueDates = make(map[string]int, len(rec.DueDates))
		for date, level := range rec.DueDates {
			tf.DueDates[date] = level
		}
	}
	return tf
}

func mergeFunctionRecord(tf *TechnicalFunction, rec Record) {
	if rec.Name != "" {
		tf.Name = rec.Name
	}
	if rec.Description != "" {
		tf.Description = rec.Description
	}
	if rec.SuccessCriteria != "" {
		tf.SuccessCriteria = rec.SuccessCriteria
	}
	if rec.PlannedStartDate != "" {
		tf.PlannedStartDate = rec.PlannedStartDate
	}
	if rec.PlannedEndDate != "" {
		tf.PlannedEndDate = rec.PlannedEndDate
	}
	if rec.CurrentTRL != 0 {
		tf.CurrentTRL = rec.CurrentTRL
	}
	if rec.DueDates != nil {
		tf.DueDates = make(map[string]int, len(rec.DueDates))
		for date, level := range rec.DueDates {
			tf.DueDates[date] = level
		}
	}
	if rec.Capabilities != nil {
		tf.Capabilities = append([]string(nil), rec.Capabilities...)
	}
	if rec.PrimaryProductFeature != "" {
		tf.PrimaryProductFeature = rec.PrimaryProductFeature
	}
	if rec.ProductFeatureDependencies != nil {
		tf.ProductFeatureDependencies = append([]string(nil), rec.ProductFeatureDependencies...)
	}
}

// repairLinks restores missing reverse edges between features and
// capabilities, and between capabilities and functions. Edges pointing at
// labels that do not exist are reported and left alone.
func repairLinks(tx Transaction) (int, []Finding) {
	repaired := 0
	var findings []Finding
	dangling := func(entity EntityType, label, refKind, ref string) {
		findings = append(findings, Finding{
			Code:     "dangling_reference",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("references unknown %s %s", refKind, ref),
			Entity:   entity,
			Label:    label,
		})
	}

	view := tx.Snapshot()
	for _, pf := range view.ListProductFeatures() {
		for _, caLabel := range pf.CapabilitiesRequired {
			ca, ok := tx.FindCapability(caLabel)
			if !ok {
				dangling(EntityProductFeature, pf.Label, "capability", caLabel)
				continue
			}
			if containsLabel(ca.ProductFeatures, pf.Label) {
				continue
			}
			if _, err := tx.UpdateCapability(caLabel, func(c *Capability) error {
				c.ProductFeatures = insertSorted(c.ProductFeatures, pf.Label)
				return nil
			}); err == nil {
				repaired++
			}
		}
	}
	for _, ca := range view.ListCapabilities() {
		for _, pfLabel := range ca.ProductFeatures {
			pf, ok := tx.FindProductFeature(pfLabel)
			if !ok {
				dangling(EntityCapability, ca.Label, "product feature", pfLabel)
				continue
			}
			if containsLabel(pf.CapabilitiesRequired, ca.Label) {
				continue
			}
			if _, err := tx.UpdateProductFeature(pfLabel, func(p *ProductFeature) error {
				p.CapabilitiesRequired = insertSorted(p.CapabilitiesRequired, ca.Label)
				return nil
			}); err == nil {
				repaired++
			}
		}
		for _, tfLabel := range ca.TechnicalFunctions {
			tf, ok := tx.FindTechnicalFunction(tfLabel)
			if !ok {
				dangling(EntityCapability, ca.Label, "technical function", tfLabel)
				continue
			}
			if containsLabel(tf.Capabilities, ca.Label) {
				continue
			}
			if _, err := tx.UpdateTechnicalFunction(tfLabel, func(t *TechnicalFunction) error {
				t.Capabilities = insertSorted(t.Capabilities, ca.Label)
				return nil
			}); err == nil {
				repaired++
			}
		}
	}
	for _, tf := range view.ListTechnicalFunctions() {
		for _, caLabel := range tf.Capabilities {
			ca, ok := tx.FindCapability(caLabel)
			if !ok {
				dangling(EntityTechnicalFunction, tf.Label, "capability", caLabel)
				continue
			}
			if containsLabel(ca.TechnicalFunctions, tf.Label) {
				continue
			}
			if _, err := tx.UpdateCapability(caLabel, func(c *Capability) error {
				c.TechnicalFunctions = insertSorted(c.TechnicalFunctions, tf.Label)
				return nil
			}); err == nil {
				repaired++
			}
		}
	}
	return repaired, findings
}

func containsLabel(labels []string, label string) bool {
	for _, candidate := range labels {
		if candidate == label {
			return true
		}
	}
	return false
}

func insertSorted(labels []string, label string) []string {
	idx := sort.SearchStrings(labels, label)
	if idx < len(labels) && labels[idx] == label {
		return labels
	}
	labels = append(labels, "")
	copy(labels[idx+1:], labels[idx:])
	labels[idx] = label
	return labels
}
