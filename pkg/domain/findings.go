package domain

import "fmt"

// FindingSeverity classifies data-quality findings raised by the pipeline and
// the document processor.
type FindingSeverity string

// Finding severities determine how a problem is surfaced; none of them abort
// a run on their own.
const (
	// SeverityInfo marks routine skips such as blank spreadsheet rows.
	SeverityInfo FindingSeverity = "info"
	// SeverityWarn marks recoverable data-quality problems such as dangling
	// label references or unparseable dates.
	SeverityWarn FindingSeverity = "warn"
	// SeverityBlock marks problems that prevent a transaction commit.
	SeverityBlock FindingSeverity = "block"
)

// Finding reports a single data-quality observation tied to an entity.
type Finding struct {
	Code     string          `json:"code"`
	Severity FindingSeverity `json:"severity"`
	Message  string          `json:"message"`
	Entity   EntityType      `json:"entity,omitempty"`
	Label    string          `json:"label,omitempty"`
}

func (f Finding) String() string {
	if f.Label != "" {
		return fmt.Sprintf("%s %s [%s %s]: %s", f.Severity, f.Code, f.Entity, f.Label, f.Message)
	}
	return fmt.Sprintf("%s %s: %s", f.Severity, f.Code, f.Message)
}

// Report aggregates findings from one or more processing stages.
type Report struct {
	Findings []Finding
}

// Add appends a finding to the report.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Merge appends findings from another report.
func (r *Report) Merge(other Report) {
	if len(other.Findings) == 0 {
		return
	}
	r.Findings = append(r.Findings, other.Findings...)
}

// HasBlocking returns true if the report contains blocking findings.
func (r Report) HasBlocking() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the subset of findings at warn severity or above.
func (r Report) Warnings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityWarn || f.Severity == SeverityBlock {
			out = append(out, f)
		}
	}
	return out
}

// RuleViolationError is returned when blocking findings are present.
type RuleViolationError struct {
	Report Report
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
