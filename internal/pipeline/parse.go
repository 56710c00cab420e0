package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"roadmapcore/pkg/domain"
)

// readRows loads a CSV file into raw rows. A missing file yields nil rows and
// a warn finding so partial runs keep going; a file that exists but cannot be
// read or parsed is a hard error.
func readRows(path string, report *domain.Report) ([][]string, error) {
	f, err := os.Open(path) // #nosec G304 -- path is operator supplied input
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			report.Add(domain.Finding{
				Code:     "input_missing",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("input file %s not found, continuing without it", path),
			})
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// cell returns the trimmed column value, or "" when the row is too short.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// cellRange joins the trimmed values of the inclusive column range with
// newlines so code extraction sees every cell.
func cellRange(row []string, from, to int) string {
	var parts []string
	for i := from; i <= to; i++ {
		if v := cell(row, i); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}

// blankRow reports whether every cell of the row is empty.
func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// normalizeSwimlane upper-cases and underscore-joins a swimlane cell, the
// form used in document output and in the excluded-swimlane filter.
func normalizeSwimlane(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "N/A"
	}
	return strings.ReplaceAll(strings.ToUpper(s), " ", "_")
}

func swimlaneExcluded(layout Layout, swimlane string) bool {
	for _, ex := range layout.ExcludedSwimlanes {
		if normalizeSwimlane(ex) == swimlane {
			return true
		}
	}
	return false
}

// parseSpreadsheetDate tries each accepted layout in order and returns the
// ISO form of the first match. Unparseable dates come back as "" with ok
// false; callers log and drop them, never abort.
func parseSpreadsheetDate(raw string, formats []string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ParseProductFeatures reads the product feature export into a label-keyed
// map. Rows without a label are skipped with an info finding; swimlanes on
// the exclusion list drop the whole row.
func ParseProductFeatures(path string, layout Layout, report *domain.Report) (map[string]*domain.ProductFeature, error) {
	rows, err := readRows(path, report)
	if err != nil {
		return nil, err
	}

	cols := layout.ProductFeature
	out := make(map[string]*domain.ProductFeature)
	currentSwimlane := "N/A"
	for i, row := range rows {
		if i < cols.HeaderRows || blankRow(row) {
			continue
		}
		if v := cell(row, cols.Swimlane); v != "" {
			currentSwimlane = normalizeSwimlane(v)
		}
		label := cell(row, cols.Label)
		if label == "" {
			report.Add(domain.Finding{
				Code:     "row_skipped",
				Severity: domain.SeverityInfo,
				Entity:   domain.EntityProductFeature,
				Message:  fmt.Sprintf("row %d has no label, skipped", i+1),
			})
			continue
		}
		swimlane := currentSwimlane
		if swimlaneExcluded(layout, swimlane) {
			report.Add(domain.Finding{
				Code:     "swimlane_excluded",
				Severity: domain.SeverityInfo,
				Entity:   domain.EntityProductFeature,
				Label:    label,
				Message:  fmt.Sprintf("swimlane %s is an operating condition, row dropped", swimlane),
			})
			continue
		}

		details := cell(row, cols.Details)
		active := domain.ActiveFlag("N/A")
		if cell(row, cols.NextFlag) == "Y" {
			active = domain.ActiveNext
		}
		vehicle := cell(row, cols.VehicleType)
		if vehicle == "" {
			vehicle = "N/A"
		}

		explicit := ExtractProductFeatureCodes(details)
		pf := &domain.ProductFeature{
			Label:                label,
			Name:                 cell(row, cols.Name),
			Description:          details,
			Swimlane:             swimlane,
			VehicleType:          vehicle,
			TMOS:                 "TBD: Define TMOS",
			ActiveFlag:           active,
			CapabilitiesRequired: ExtractCapabilityCodes(cellRange(row, cols.CapabilityFrom, cols.CapabilityTo)),
			Dependencies:         mergeCodes(explicit, InferDependencies(label)),
		}
		if prev, ok := out[label]; ok {
			report.Add(domain.Finding{
				Code:     "duplicate_label",
				Severity: domain.SeverityWarn,
				Entity:   domain.EntityProductFeature,
				Label:    label,
				Message:  fmt.Sprintf("label appears more than once, keeping first occurrence %q over %q", prev.Name, pf.Name),
			})
			continue
		}
		out[label] = pf
	}
	return out, nil
}

// ParseCapabilities reads the capability export into a label-keyed map. The
// swimlane column is only populated on the first row of each visual group, so
// the last non-blank value carries forward.
func ParseCapabilities(path string, layout Layout, report *domain.Report) (map[string]*domain.Capability, error) {
	rows, err := readRows(path, report)
	if err != nil {
		return nil, err
	}

	cols := layout.Capability
	out := make(map[string]*domain.Capability)
	currentSwimlane := "N/A"
	for i, row := range rows {
		if i < cols.HeaderRows || blankRow(row) {
			continue
		}
		if v := cell(row, cols.Swimlane); v != "" {
			currentSwimlane = normalizeSwimlane(v)
		}
		label := cell(row, cols.Label)
		if !strings.HasPrefix(label, "CA-") {
			report.Add(domain.Finding{
				Code:     "row_skipped",
				Severity: domain.SeverityInfo,
				Entity:   domain.EntityCapability,
				Label:    label,
				Message:  fmt.Sprintf("row %d has no CA- label, skipped", i+1),
			})
			continue
		}
		if swimlaneExcluded(layout, currentSwimlane) {
			report.Add(domain.Finding{
				Code:     "swimlane_excluded",
				Severity: domain.SeverityInfo,
				Entity:   domain.EntityCapability,
				Label:    label,
				Message:  fmt.Sprintf("swimlane %s is an operating condition, row dropped", currentSwimlane),
			})
			continue
		}

		vehicle := cell(row, cols.VehicleType)
		if vehicle == "" {
			vehicle = "N/A"
		}

		// A label may span several rows; later rows only contribute more PF
		// references.
		ca, ok := out[label]
		if !ok {
			ca = &domain.Capability{
				Label:           label,
				Name:            cell(row, cols.Name),
				Swimlane:        currentSwimlane,
				VehicleType:     vehicle,
				SuccessCriteria: "TBD: Define success criteria",
				TMOS:            "TBD: Define TMOS",
			}
			out[label] = ca
		}

		features := ExtractProductFeatureCodes(cellRange(row, cols.FeatureFrom, cols.FeatureTo))
		if v := cell(row, cols.FeatureCell); v != "" {
			features = mergeCodes(features, []string{v})
		}
		ca.ProductFeatures = mergeCodes(ca.ProductFeatures, features)
	}
	return out, nil
}

// ParseTechnicalFunctions reads the capability-to-tech export into a
// label-keyed map. A row links every TE code in its labels cell to the CA
// code embedded in its capability cell, and contributes the row's TRL dates
// to each of those technical functions.
func ParseTechnicalFunctions(path string, layout Layout, report *domain.Report) (map[string]*domain.TechnicalFunction, error) {
	rows, err := readRows(path, report)
	if err != nil {
		return nil, err
	}

	cols := layout.TechnicalFunction
	out := make(map[string]*domain.TechnicalFunction)
	for i, row := range rows {
		if i < cols.HeaderRows || blankRow(row) {
			continue
		}
		labels := ExtractTechnicalFunctionCodes(cell(row, cols.Labels))
		caCodes := ExtractCapabilityCodes(cell(row, cols.Capability))
		if len(labels) == 0 || len(caCodes) == 0 {
			report.Add(domain.Finding{
				Code:     "row_skipped",
				Severity: domain.SeverityInfo,
				Entity:   domain.EntityTechnicalFunction,
				Message:  fmt.Sprintf("row %d has no matched technical function and capability codes, skipped", i+1),
			})
			continue
		}
		caLabel := caCodes[0]

		dueDates := map[string]int{}
		for _, trl := range cols.TRL {
			raw := cell(row, trl.Index)
			if raw == "" {
				continue
			}
			iso, ok := parseSpreadsheetDate(raw, layout.DateFormats)
			if !ok {
				report.Add(domain.Finding{
					Code:     "unparseable_date",
					Severity: domain.SeverityWarn,
					Entity:   domain.EntityTechnicalFunction,
					Message:  fmt.Sprintf("row %d: cannot parse TRL %d date %q, dropped", i+1, trl.Level, raw),
				})
				continue
			}
			dueDates[iso] = trl.Level
		}

		for _, label := range labels {
			tf, ok := out[label]
			if !ok {
				tf = &domain.TechnicalFunction{
					Label:           label,
					Name:            fmt.Sprintf("Technical Function %s", label),
					SuccessCriteria: "TBD: Define success criteria",
					DueDates:        map[string]int{},
				}
				out[label] = tf
			}
			tf.Capabilities = mergeCodes(tf.Capabilities, []string{caLabel})
			for date, level := range dueDates {
				if existing, dup := tf.DueDates[date]; dup && existing != level {
					report.Add(domain.Finding{
						Code:     "conflicting_due_date",
						Severity: domain.SeverityWarn,
						Entity:   domain.EntityTechnicalFunction,
						Label:    label,
						Message:  fmt.Sprintf("due date %s promises TRL %d and TRL %d, keeping the higher", date, existing, level),
					})
					if existing > level {
						continue
					}
				}
				tf.DueDates[date] = level
			}
		}
	}

	for _, tf := range out {
		tf.Description = fmt.Sprintf("Aggregated technical function associated with capabilities: %s", strings.Join(tf.Capabilities, ", "))
		dates := make([]string, 0, len(tf.DueDates))
		for date := range tf.DueDates {
			dates = append(dates, date)
		}
		sort.Strings(dates)
		if len(dates) > 0 {
			tf.PlannedStartDate = dates[0]
			tf.PlannedEndDate = dates[len(dates)-1]
		}
	}
	return out, nil
}
