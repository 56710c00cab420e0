// Package pipeline implements the roadmap CSV to JSON transformation: column
// mapped parsing of the three spreadsheet exports, code extraction, bilateral
// link reconciliation, bottom-up date and TRL propagation, and assembly of the
// versioned entity document.
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProductFeatureColumns maps spreadsheet column indices for the product
// feature export. Column position is the contract; there is no header-name
// binding.
type ProductFeatureColumns struct {
	Swimlane    int `yaml:"swimlane"`
	Label       int `yaml:"label"`
	Name        int `yaml:"name"`
	VehicleType int `yaml:"vehicle_type"`
	Details     int `yaml:"details"`
	NextFlag    int `yaml:"next_flag"`
	// CapabilityFrom and CapabilityTo bound the run of columns whose cells
	// carry capability code references, inclusive on both ends.
	CapabilityFrom int `yaml:"capability_from"`
	CapabilityTo   int `yaml:"capability_to"`
	HeaderRows     int `yaml:"header_rows"`
}

// CapabilityColumns maps spreadsheet column indices for the capability export.
type CapabilityColumns struct {
	Swimlane    int `yaml:"swimlane"`
	Label       int `yaml:"label"`
	Name        int `yaml:"name"`
	VehicleType int `yaml:"vehicle_type"`
	// FeatureFrom and FeatureTo bound the run of columns scanned for PF code
	// references, inclusive on both ends.
	FeatureFrom int `yaml:"feature_from"`
	FeatureTo   int `yaml:"feature_to"`
	// FeatureCell is a column whose whole cell is taken verbatim as a PF
	// label in addition to the scanned range.
	FeatureCell int `yaml:"feature_cell"`
	HeaderRows  int `yaml:"header_rows"`
}

// TRLColumn binds one date column of the technical function export to the TRL
// level its dates promise.
type TRLColumn struct {
	Index int `yaml:"index"`
	Level int `yaml:"level"`
}

// TechnicalFunctionColumns maps spreadsheet column indices for the capability
// to technical function export.
type TechnicalFunctionColumns struct {
	Capability int         `yaml:"capability"`
	Labels     int         `yaml:"labels"`
	TRL        []TRLColumn `yaml:"trl"`
	HeaderRows int         `yaml:"header_rows"`
}

// Layout is the full column-index configuration for one known spreadsheet
// revision. The roadmap exports are reformatted often enough that the layout
// is selected explicitly at invocation time instead of auto-detected.
type Layout struct {
	Name              string                   `yaml:"name"`
	ProductFeature    ProductFeatureColumns    `yaml:"product_feature"`
	Capability        CapabilityColumns        `yaml:"capability"`
	TechnicalFunction TechnicalFunctionColumns `yaml:"technical_function"`
	// ExcludedSwimlanes name operating-condition categories that are dropped
	// entirely; they are not deliverables.
	ExcludedSwimlanes []string `yaml:"excluded_swimlanes"`
	// DateFormats lists the Go reference layouts tried in order when parsing
	// spreadsheet date cells.
	DateFormats []string `yaml:"date_formats"`
}

// DefaultDateFormats are the spreadsheet date shapes accepted by every known
// export revision, tried in order.
var DefaultDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-2006",
	"02-01-2006",
}

// DefaultLayout returns the layout of the current roadmap export revision.
func DefaultLayout() Layout {
	return Layout{
		Name: "roadmap-2.0",
		ProductFeature: ProductFeatureColumns{
			Swimlane:       0,
			Label:          1,
			Name:           2,
			VehicleType:    3,
			Details:        7,
			NextFlag:       8,
			CapabilityFrom: 9,
			CapabilityTo:   11,
			HeaderRows:     1,
		},
		Capability: CapabilityColumns{
			Swimlane:    0,
			Label:       1,
			Name:        2,
			VehicleType: 3,
			FeatureFrom: 4,
			FeatureTo:   5,
			FeatureCell: 9,
			HeaderRows:  1,
		},
		TechnicalFunction: TechnicalFunctionColumns{
			Capability: 0,
			Labels:     1,
			TRL: []TRLColumn{
				{Index: 2, Level: 4},
				{Index: 3, Level: 7},
				{Index: 4, Level: 9},
			},
			HeaderRows: 2,
		},
		ExcludedSwimlanes: []string{"ENVIRONMENTAL", "CARGO"},
		DateFormats:       append([]string(nil), DefaultDateFormats...),
	}
}

// LoadLayout reads a layout description from a YAML file. Fields omitted in
// the file fall back to the zero value, not to the default layout, so files
// should be complete.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied configuration
	if err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if len(layout.DateFormats) == 0 {
		layout.DateFormats = append([]string(nil), DefaultDateFormats...)
	}
	return layout, nil
}

// Validate rejects layouts whose required column indices are negative or
// whose capability/feature ranges are inverted.
func (l Layout) Validate() error {
	if l.ProductFeature.Label < 0 || l.Capability.Label < 0 || l.TechnicalFunction.Labels < 0 {
		return fmt.Errorf("layout %s: label column indices must be non-negative", l.Name)
	}
	if l.ProductFeature.CapabilityTo < l.ProductFeature.CapabilityFrom {
		return fmt.Errorf("layout %s: product feature capability column range is inverted", l.Name)
	}
	if l.Capability.FeatureTo < l.Capability.FeatureFrom {
		return fmt.Errorf("layout %s: capability feature column range is inverted", l.Name)
	}
	return nil
}
