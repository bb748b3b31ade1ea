package validation

import (
	"sort"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

// Options tunes a validation pass. The zero value means default caps and
// permissive (non-strict) severity.
type Options struct {
	// MaxExamples caps rows and examples kept per issue in the report.
	// Zero means DefaultMaxExamples.
	MaxExamples int
	// Strict promotes warnings to errors for the outcome decision.
	Strict bool
}

// DefaultMaxExamples is the per-issue cap on reported rows and examples.
const DefaultMaxExamples = 5

// ValidateFile loads a CSV extract and validates it. A file that cannot be
// read or parsed at all returns a StructuralError; content findings never
// produce an error, they land in the report.
func ValidateFile(path string, reg registry.Register, opts Options) (*types.ValidationReport, *table.Table, error) {
	t, encInfo, err := table.ReadFile(path)
	if err != nil {
		return nil, nil, &StructuralError{Path: path, Message: "cannot read or parse input", Cause: err}
	}
	report := Validate(t, encInfo, reg, opts)
	report.InputFile = path
	return report, t, nil
}

// Validate runs every check over an in-memory snapshot and builds the
// report. Given identical input bytes and schema the output is
// byte-identical modulo the generated_at timestamp: issues are ordered by
// code, then column, then first affected row.
func Validate(t *table.Table, encInfo types.EncodingInfo, reg registry.Register, opts Options) *types.ValidationReport {
	maxExamples := opts.MaxExamples
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamples
	}

	var issues []types.Issue
	issues = append(issues, checkHeader(t, reg)...)

	shapeIssues, mismatched := checkRowShape(t)
	issues = append(issues, shapeIssues...)

	issues = append(issues, checkIdentifier(t)...)
	issues = append(issues, checkDates(t, reg)...)
	issues = append(issues, checkServiceCodes(t, reg)...)
	issues = append(issues, checkCountryCodes(t, reg)...)
	issues = append(issues, checkMultiline(t, reg)...)
	issues = append(issues, checkEncodingSymptoms(t)...)

	sortIssues(issues)
	capped := make([]types.Issue, len(issues))
	for i, iss := range issues {
		capped[i] = iss.Capped(maxExamples)
	}

	report := &types.ValidationReport{
		Version:     types.ReportVersion,
		GeneratedAt: artifacts.Now(),
		Register:    string(reg.Type),
		Encoding:    encInfo,
		Stats: types.ValidationStats{
			RowsTotal:  t.NumRows() + 1, // header included
			RowsParsed: t.NumRows() - len(mismatched),
			Columns:    len(t.Header),
			Header:     t.Header,
		},
		Issues: capped,
	}
	report.Stats.Errors = report.ErrorCount()
	report.Stats.Warnings = report.WarningCount()
	return report
}

// sortIssues fixes the report order: code, then column, then first row.
func sortIssues(issues []types.Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Code != issues[b].Code {
			return issues[a].Code < issues[b].Code
		}
		if issues[a].Column != issues[b].Column {
			return issues[a].Column < issues[b].Column
		}
		return firstRow(issues[a]) < firstRow(issues[b])
	})
}

func firstRow(i types.Issue) int {
	if len(i.Rows) == 0 {
		return 0
	}
	return i.Rows[0]
}

func sortStrings(s []string) { sort.Strings(s) }
func sortInts(s []int)       { sort.Ints(s) }
