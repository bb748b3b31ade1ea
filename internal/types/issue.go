// Package types defines the shared data model for pipeline artifacts:
// validation issues and reports, cleaning changes, remediation tasks,
// patches and apply reports.
package types

// Severity classifies how a validation issue affects importability.
type Severity string

// Severity levels. An ERROR blocks import until remediated; a WARNING is
// importable but recorded.
const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue codes form a closed vocabulary. Validators must not invent codes
// outside this set; downstream task mapping keys off them.
const (
	CodeSchemaMissingColumn    = "SCHEMA_MISSING_COLUMN"
	CodeSchemaDuplicateColumn  = "SCHEMA_DUPLICATE_COLUMN"
	CodeSchemaHeaderWhitespace = "SCHEMA_HEADER_WHITESPACE"
	CodeRowColumnCountMismatch = "ROW_COLUMN_COUNT_MISMATCH"
	CodeLEIInvalidFormat       = "LEI_INVALID_FORMAT"
	CodeLEIDuplicate           = "LEI_DUPLICATE"
	CodeDateUnparsable         = "DATE_UNPARSABLE"
	CodeDateNeedsNormalization = "DATE_NEEDS_NORMALIZATION"
	CodeServiceCodeInvalid     = "SERVICE_CODE_INVALID"
	CodeServiceCodeSuspicious  = "SERVICE_CODE_SUSPICIOUS_FORMAT"
	CodeCountryCodeInvalid     = "COUNTRY_CODE_INVALID"
	CodeCountryCodeNeedsNorm   = "COUNTRY_CODE_NEEDS_NORMALIZATION"
	CodeMultilineField         = "MULTILINE_FIELD"
	CodeMultilineWebsite       = "MULTILINE_WEBSITE"
	CodeEncodingSuspect        = "ENCODING_SUSPECT"
)

// KnownIssueCodes is the closed set of codes a validator may emit.
var KnownIssueCodes = map[string]bool{
	CodeSchemaMissingColumn:    true,
	CodeSchemaDuplicateColumn:  true,
	CodeSchemaHeaderWhitespace: true,
	CodeRowColumnCountMismatch: true,
	CodeLEIInvalidFormat:       true,
	CodeLEIDuplicate:           true,
	CodeDateUnparsable:         true,
	CodeDateNeedsNormalization: true,
	CodeServiceCodeInvalid:     true,
	CodeServiceCodeSuspicious:  true,
	CodeCountryCodeInvalid:     true,
	CodeCountryCodeNeedsNorm:   true,
	CodeMultilineField:         true,
	CodeMultilineWebsite:       true,
	CodeEncodingSuspect:        true,
}

// Issue is a single validation finding, created by one validator during one
// pass and never mutated afterwards. Rows are 1-based CSV row numbers
// (header is row 1, data starts at row 2).
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Column   string   `json:"column,omitempty"`
	Rows     []int    `json:"rows"`
	Examples []string `json:"examples"`
}

// Capped returns a copy of the issue with rows and examples truncated to
// maxExamples entries. A non-positive cap keeps everything.
func (i Issue) Capped(maxExamples int) Issue {
	if maxExamples <= 0 {
		return i
	}
	out := i
	if len(out.Rows) > maxExamples {
		out.Rows = out.Rows[:maxExamples]
	}
	if len(out.Examples) > maxExamples {
		out.Examples = out.Examples[:maxExamples]
	}
	return out
}

// Outcome is the tri-state result of a validation pass.
type Outcome string

// Validation outcomes.
const (
	OutcomeClean    Outcome = "clean"
	OutcomeWarnings Outcome = "warnings"
	OutcomeErrors   Outcome = "errors"
)
