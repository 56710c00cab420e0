package domain

// Metadata is the envelope header carried by every roadmap document.
type Metadata struct {
	Version     string `json:"version"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	CreatedDate string `json:"created_date"`
	Notes       string `json:"notes"`
}

// Record is a single entity operation inside a roadmap document. The set of
// populated fields depends on EntityType; the document is a flat JSON object
// per entity, so the struct carries the union of all kind-specific fields.
type Record struct {
	Comment    string     `json:"_comment,omitempty"`
	EntityType EntityType `json:"entity_type"`
	Operation  Operation  `json:"operation"`
	Name       string     `json:"name"`
	Label      string     `json:"label"`

	Description     string `json:"description,omitempty"`
	SuccessCriteria string `json:"success_criteria,omitempty"`
	VehicleType     string `json:"vehicle_type,omitempty"`
	Swimlane        string `json:"swimlane_decorators,omitempty"`
	TMOS            string `json:"tmos,omitempty"`

	// Percent fields are pointers so that only the kind that owns them is
	// serialised; both are valid in the 0.0-100.0 range.
	StatusRelativeToTMOS   *float64 `json:"status_relative_to_tmos,omitempty"`
	ProgressRelativeToTMOS *float64 `json:"progress_relative_to_tmos,omitempty"`

	PlannedStartDate string     `json:"planned_start_date"`
	PlannedEndDate   string     `json:"planned_end_date"`
	ActiveFlag       ActiveFlag `json:"active_flag,omitempty"`
	CurrentTRL       int        `json:"current_trl,omitempty"`
	DocumentURL      string     `json:"document_url,omitempty"`

	CapabilitiesRequired []string       `json:"capabilities_required,omitempty"`
	Dependencies         []string       `json:"dependencies,omitempty"`
	ProductFeatures      []string       `json:"product_features,omitempty"`
	TechnicalFunctions   []string       `json:"technical_functions,omitempty"`
	Capabilities         []string       `json:"capabilities,omitempty"`
	DueDates             map[string]int `json:"due_dates,omitempty"`

	PrimaryProductFeature      string   `json:"product_feature,omitempty"`
	ProductFeatureDependencies []string `json:"product_feature_dependencies,omitempty"`
}

// Document is the sole interface between the transformation pipeline and the
// persistence layer: a metadata envelope plus an ordered list of entity
// operations. Ordering places product features before capabilities before
// technical functions so a single-pass consumer never needs forward
// references.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Entities []Record `json:"entities"`
}

// SchemaVersion is the document schema emitted by this pipeline revision.
const SchemaVersion = "2.0"

// Float returns a pointer to v, for populating the optional percent fields.
func Float(v float64) *float64 { return &v }
