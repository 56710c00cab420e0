// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by roadmapcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in document records and persistence buckets.
const (
	// EntityProductFeature identifies a top-level deliverable record.
	EntityProductFeature EntityType = "product_feature"
	// EntityCapability identifies a mid-level capability grouping record.
	EntityCapability EntityType = "capability"
	// EntityTechnicalFunction identifies a leaf implementation unit record.
	EntityTechnicalFunction EntityType = "technical_function"
)

// Operation enumerates the mutations a document record may request.
type Operation string

// Document operations applied by the upsert consumer.
const (
	// OperationCreate requests creation of a new entity keyed by label.
	OperationCreate Operation = "create"
	// OperationUpdate requests a field-level update of an existing entity.
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// ActiveFlag marks whether a product feature belongs to the current or the
// next planning horizon.
type ActiveFlag string

// Planning horizon flags carried on product features.
const (
	ActiveNext    ActiveFlag = "next"
	ActiveCurrent ActiveFlag = "current"
)

// TRL levels run 1 (baseline, unvalidated) through 9 (proven in operation).
const (
	TRLBaseline = 1
	TRLMax      = 9
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductFeature is a top-level deliverable tracked on the roadmap. Labels
// follow PF-<SWIMLANE>-<major>.<minor> and are the only stable join key;
// names are duplicated and misspelled in source spreadsheets.
type ProductFeature struct {
	Base
	Label                string     `json:"label"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	Swimlane             string     `json:"swimlane_decorators"`
	VehicleType          string     `json:"vehicle_type"`
	TMOS                 string     `json:"tmos"`
	StatusRelativeToTMOS float64    `json:"status_relative_to_tmos"`
	PlannedStartDate     string     `json:"planned_start_date"`
	PlannedEndDate       string     `json:"planned_end_date"`
	ActiveFlag           ActiveFlag `json:"active_flag"`
	CurrentTRL           int        `json:"current_trl"`
	// CapabilitiesRequired holds CA labels; kept symmetric with
	// Capability.ProductFeatures by reconciliation.
	CapabilitiesRequired []string `json:"capabilities_required"`
	// Dependencies holds PF labels, explicit plus inferred predecessors.
	Dependencies []string `json:"dependencies"`
	DocumentURL  string   `json:"document_url,omitempty"`
}

// Capability groups technical functions under a deliverable theme. Labels
// follow CA-<CODE>-<major>.<minor>. Planned dates are derived, never
// hand-edited once computed.
type Capability struct {
	Base
	Label                  string  `json:"label"`
	Name                   string  `json:"name"`
	Swimlane               string  `json:"swimlane_decorators"`
	VehicleType            string  `json:"vehicle_type"`
	SuccessCriteria        string  `json:"success_criteria"`
	TMOS                   string  `json:"tmos"`
	ProgressRelativeToTMOS float64 `json:"progress_relative_to_tmos"`
	PlannedStartDate       string  `json:"planned_start_date"`
	PlannedEndDate         string  `json:"planned_end_date"`
	CurrentTRL             int     `json:"current_trl"`
	ProductFeatures        []string `json:"product_features"`
	TechnicalFunctions     []string `json:"technical_functions"`
}

// TechnicalFunction is a leaf implementation unit with per-TRL due dates.
// Labels follow TE-<CODE>-<major>.<minor> or are synthetic when the source
// spreadsheet omits one.
type TechnicalFunction struct {
	Base
	Label            string `json:"label"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	SuccessCriteria  string `json:"success_criteria"`
	PlannedStartDate string `json:"planned_start_date"`
	PlannedEndDate   string `json:"planned_end_date"`
	// DueDates maps an ISO calendar date to the TRL level promised by it.
	DueDates   map[string]int `json:"due_dates"`
	CurrentTRL int            `json:"current_trl"`
	// Capabilities holds CA labels; kept symmetric with
	// Capability.TechnicalFunctions by reconciliation.
	Capabilities []string `json:"capabilities"`
	// PrimaryProductFeature is set when exactly one PF is reachable through
	// the linked capabilities; otherwise the reachable set lives in
	// ProductFeatureDependencies.
	PrimaryProductFeature      string   `json:"product_feature,omitempty"`
	ProductFeatureDependencies []string `json:"product_feature_dependencies"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Operation
	Before any
	After  any
}

// CloneProductFeature returns a deep copy safe to hand across store boundaries.
func CloneProductFeature(pf ProductFeature) ProductFeature {
	cp := pf
	cp.CapabilitiesRequired = append([]string(nil), pf.CapabilitiesRequired...)
	cp.Dependencies = append([]string(nil), pf.Dependencies...)
	return cp
}

// CloneCapability returns a deep copy safe to hand across store boundaries.
func CloneCapability(ca Capability) Capability {
	cp := ca
	cp.ProductFeatures = append([]string(nil), ca.ProductFeatures...)
	cp.TechnicalFunctions = append([]string(nil), ca.TechnicalFunctions...)
	return cp
}

// CloneTechnicalFunction returns a deep copy safe to hand across store boundaries.
func CloneTechnicalFunction(tf TechnicalFunction) TechnicalFunction {
	cp := tf
	cp.Capabilities = append([]string(nil), tf.Capabilities...)
	cp.ProductFeatureDependencies = append([]string(nil), tf.ProductFeatureDependencies...)
	if tf.DueDates != nil {
		cp.DueDates = make(map[string]int, len(tf.DueDates))
		for k, v := range tf.DueDates {
			cp.DueDates[k] = v
		}
	}
	return cp
}
