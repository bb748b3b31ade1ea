package types

import "time"

// ReportVersion is the schema version stamped into every JSON artifact.
const ReportVersion = 1

// EncodingInfo describes the result of byte-encoding detection for an
// input file. Confidence 0 means the detector fell back to a tolerant
// default with no detection signal.
type EncodingInfo struct {
	Detected   string  `json:"detected"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

// ValidationStats summarizes the structural shape of the validated file.
type ValidationStats struct {
	RowsTotal  int      `json:"rows_total"`
	RowsParsed int      `json:"rows_parsed"`
	Columns    int      `json:"columns"`
	Header     []string `json:"header"`
	Errors     int      `json:"errors"`
	Warnings   int      `json:"warnings"`
}

// ValidationReport is the immutable output of one validation pass
// (raw, post-clean, or final).
type ValidationReport struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	InputFile   string          `json:"input_file"`
	Register    string          `json:"register"`
	Encoding    EncodingInfo    `json:"encoding"`
	Stats       ValidationStats `json:"stats"`
	Issues      []Issue         `json:"issues"`
}

// ErrorCount returns the number of ERROR issues.
func (r *ValidationReport) ErrorCount() int {
	n := 0
	for _, iss := range r.Issues {
		if iss.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of WARNING issues.
func (r *ValidationReport) WarningCount() int {
	n := 0
	for _, iss := range r.Issues {
		if iss.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Outcome reduces the report to its tri-state result. In strict mode
// warnings count as errors.
func (r *ValidationReport) Outcome(strict bool) Outcome {
	errs := r.ErrorCount()
	warns := r.WarningCount()
	switch {
	case errs > 0:
		return OutcomeErrors
	case warns > 0 && strict:
		return OutcomeErrors
	case warns > 0:
		return OutcomeWarnings
	default:
		return OutcomeClean
	}
}

// Change is one atomic cleaner edit: old value became new value in a
// single cell. Row numbers are 1-based CSV positions at the time of the
// edit. The append-only list of changes forms the cleaning audit trail.
type Change struct {
	Type     string `json:"type"`
	Row      int    `json:"row"`
	Column   string `json:"column"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Flag records a value the cleaner inspected but could not repair. Flags
// are informational: they repeat on reruns (unlike changes, which drain to
// zero on the cleaner's own output) and feed the remediation stage.
type Flag struct {
	Type   string `json:"type"`
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// CleaningStats records row and column counts around the cleaning stage.
// RowsAfter may be lower than RowsBefore after a duplicate-identifier merge.
type CleaningStats struct {
	RowsBefore int `json:"rows_before"`
	RowsAfter  int `json:"rows_after"`
	Columns    int `json:"columns"`
}

// CleaningSummary aggregates the change list by type.
type CleaningSummary struct {
	TotalChanges  int            `json:"total_changes"`
	ChangesByType map[string]int `json:"changes_by_type"`
}

// CleaningReport is the audit artifact of one deterministic-cleaner run.
type CleaningReport struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	InputFile   string          `json:"input_file"`
	OutputFile  string          `json:"output_file"`
	Register    string          `json:"register"`
	Encoding    EncodingInfo    `json:"encoding"`
	Stats       CleaningStats   `json:"stats"`
	Changes     []Change        `json:"changes"`
	Flags       []Flag          `json:"flags"`
	Summary     CleaningSummary `json:"summary"`
}

// Summarize recomputes the summary block from the change list.
func (r *CleaningReport) Summarize() {
	byType := make(map[string]int)
	for _, c := range r.Changes {
		byType[c.Type]++
	}
	r.Summary = CleaningSummary{
		TotalChanges:  len(r.Changes),
		ChangesByType: byType,
	}
}
