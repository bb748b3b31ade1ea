package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

// LEIPattern is the fixed identifier format: exactly 20 alphanumerics.
var LEIPattern = regexp.MustCompile(`^[A-Z0-9]{20}$`)

const examplePreviewLen = 80

// checkHeader validates header integrity: required columns present, no
// duplicates, no leading/trailing whitespace.
func checkHeader(t *table.Table, reg registry.Register) []types.Issue {
	var issues []types.Issue

	var missing []string
	for _, col := range reg.RequiredColumns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Code:     types.CodeSchemaMissingColumn,
			Message:  fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
			Examples: missing,
		})
	}

	seen := make(map[string]bool)
	var duplicates []string
	for _, col := range t.Header {
		name := strings.TrimSpace(col)
		if seen[name] {
			duplicates = append(duplicates, name)
		}
		seen[name] = true
	}
	if len(duplicates) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Code:     types.CodeSchemaDuplicateColumn,
			Message:  fmt.Sprintf("duplicate column names: %s", strings.Join(duplicates, ", ")),
			Examples: duplicates,
		})
	}

	var whitespace []string
	for _, col := range t.Header {
		if col != strings.TrimSpace(col) {
			whitespace = append(whitespace, col)
		}
	}
	if len(whitespace) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityWarning,
			Code:     types.CodeSchemaHeaderWhitespace,
			Message:  fmt.Sprintf("%d column name(s) carry leading or trailing whitespace", len(whitespace)),
			Examples: whitespace,
		})
	}

	return issues
}

// checkRowShape finds rows whose column count differs from the header.
// Such rows are excluded from the parsed count but stay in the report.
func checkRowShape(t *table.Table) ([]types.Issue, []int) {
	width := len(t.Header)
	var mismatched []int
	var examples []string
	for i, row := range t.Rows {
		if len(row) == width {
			continue
		}
		num := table.RowNumber(i)
		mismatched = append(mismatched, num)
		if len(examples) < 3 {
			preview := strings.Join(row, " ")
			if len(preview) > examplePreviewLen {
				preview = preview[:examplePreviewLen]
			}
			examples = append(examples, fmt.Sprintf("row %d (%d columns): %s", num, len(row), preview))
		}
	}
	if len(mismatched) == 0 {
		return nil, nil
	}
	return []types.Issue{{
		Severity: types.SeverityError,
		Code:     types.CodeRowColumnCountMismatch,
		Message:  fmt.Sprintf("%d row(s) with column count differing from header (%d columns)", len(mismatched), width),
		Rows:     mismatched,
		Examples: examples,
	}}, mismatched
}

// checkIdentifier validates the LEI column: format errors plus duplicate
// values, which mark merge candidates rather than hard failures.
func checkIdentifier(t *table.Table) []types.Issue {
	if !t.HasColumn(registry.IdentifierColumn) {
		return nil
	}

	var issues []types.Issue
	var invalidRows []int
	var invalidExamples []string
	byValue := make(map[string][]int)

	for i := range t.Rows {
		lei := strings.TrimSpace(t.Get(i, registry.IdentifierColumn))
		if lei == "" {
			continue
		}
		num := table.RowNumber(i)
		if !LEIPattern.MatchString(lei) {
			invalidRows = append(invalidRows, num)
			if len(invalidExamples) < 5 {
				invalidExamples = append(invalidExamples, truncate(lei, 50))
			}
		}
		byValue[lei] = append(byValue[lei], num)
	}

	if len(invalidRows) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Code:     types.CodeLEIInvalidFormat,
			Message:  fmt.Sprintf("%d identifier(s) not matching the 20-character alphanumeric format", len(invalidRows)),
			Column:   registry.IdentifierColumn,
			Rows:     invalidRows,
			Examples: invalidExamples,
		})
	}

	var dupValues []string
	var dupRows []int
	for lei, rows := range byValue {
		if len(rows) > 1 {
			dupValues = append(dupValues, lei)
			dupRows = append(dupRows, rows...)
		}
	}
	if len(dupValues) > 0 {
		sortStrings(dupValues)
		sortInts(dupRows)
		issues = append(issues, types.Issue{
			Severity: types.SeverityWarning,
			Code:     types.CodeLEIDuplicate,
			Message:  fmt.Sprintf("%d identifier(s) repeated across %d rows (merge candidates)", len(dupValues), len(dupRows)),
			Column:   registry.IdentifierColumn,
			Rows:     dupRows,
			Examples: dupValues,
		})
	}

	return issues
}

// checkDates validates every date column of the register against the
// accepted format set, splitting repairable glitches from unparseable
// values.
func checkDates(t *table.Table, reg registry.Register) []types.Issue {
	var issues []types.Issue
	for _, col := range reg.DateColumns {
		if !t.HasColumn(col) {
			continue
		}
		var badRows, fixableRows []int
		var badExamples, fixableExamples []string
		for i := range t.Rows {
			value := strings.TrimSpace(t.Get(i, col))
			if value == "" {
				continue
			}
			class := ClassifyDate(value)
			switch {
			case class.OK:
			case class.Repairable:
				fixableRows = append(fixableRows, table.RowNumber(i))
				if len(fixableExamples) < 3 {
					fixableExamples = append(fixableExamples, fmt.Sprintf("%s -> %s", value, class.Repaired))
				}
			default:
				badRows = append(badRows, table.RowNumber(i))
				if len(badExamples) < 3 {
					badExamples = append(badExamples, value)
				}
			}
		}
		if len(fixableRows) > 0 {
			issues = append(issues, types.Issue{
				Severity: types.SeverityWarning,
				Code:     types.CodeDateNeedsNormalization,
				Message:  fmt.Sprintf("column %q: %d date(s) parseable only after known glitch repair", col, len(fixableRows)),
				Column:   col,
				Rows:     fixableRows,
				Examples: fixableExamples,
			})
		}
		if len(badRows) > 0 {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Code:     types.CodeDateUnparsable,
				Message:  fmt.Sprintf("column %q: %d unparseable date(s)", col, len(badRows)),
				Column:   col,
				Rows:     badRows,
				Examples: badExamples,
			})
		}
	}
	return issues
}

// checkServiceCodes validates the enumerated service-code field.
func checkServiceCodes(t *table.Table, reg registry.Register) []types.Issue {
	col := reg.ServiceCodeColumn
	if col == "" || !t.HasColumn(col) {
		return nil
	}

	var invalidRows, suspiciousRows []int
	var invalidExamples, suspiciousExamples []string
	for i := range t.Rows {
		value := strings.TrimSpace(t.Get(i, col))
		if value == "" {
			continue
		}
		codes, suspicious := registry.ExtractServiceCodes(value)
		switch {
		case len(codes) == 0:
			invalidRows = append(invalidRows, table.RowNumber(i))
			if len(invalidExamples) < 3 {
				invalidExamples = append(invalidExamples, truncate(value, 100))
			}
		case suspicious:
			suspiciousRows = append(suspiciousRows, table.RowNumber(i))
			if len(suspiciousExamples) < 3 {
				suspiciousExamples = append(suspiciousExamples, truncate(value, 100))
			}
		}
	}

	var issues []types.Issue
	if len(invalidRows) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Code:     types.CodeServiceCodeInvalid,
			Message:  fmt.Sprintf("%d row(s) without any valid service code (a-j)", len(invalidRows)),
			Column:   col,
			Rows:     invalidRows,
			Examples: invalidExamples,
		})
	}
	if len(suspiciousRows) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityWarning,
			Code:     types.CodeServiceCodeSuspicious,
			Message:  fmt.Sprintf("%d row(s) with service-code entries containing letters outside a-j", len(suspiciousRows)),
			Column:   col,
			Rows:     suspiciousRows,
			Examples: suspiciousExamples,
		})
	}
	return issues
}

// checkCountryCodes validates the enumerated country field: membership in
// the closed vocabulary is an error, case or whitespace drift a warning.
func checkCountryCodes(t *table.Table, reg registry.Register) []types.Issue {
	col := reg.CountryCodeColumn
	if col == "" || !t.HasColumn(col) {
		return nil
	}

	var invalidRows, normRows []int
	var invalidExamples, normExamples []string
	for i := range t.Rows {
		value := t.Get(i, col)
		if strings.TrimSpace(value) == "" {
			continue
		}
		rowInvalid, rowNeedsNorm := false, false
		var badCode string
		for _, code := range registry.SplitCountryCodes(value) {
			normalized := strings.ToUpper(strings.TrimSpace(code))
			if !registry.ValidCountryCode(normalized) {
				rowInvalid = true
				badCode = code
				break
			}
			if code != normalized {
				rowNeedsNorm = true
			}
		}
		switch {
		case rowInvalid:
			invalidRows = append(invalidRows, table.RowNumber(i))
			if len(invalidExamples) < 5 {
				invalidExamples = append(invalidExamples, badCode)
			}
		case rowNeedsNorm:
			normRows = append(normRows, table.RowNumber(i))
			if len(normExamples) < 3 {
				normExamples = append(normExamples, truncate(value, 50))
			}
		}
	}

	var issues []types.Issue
	if len(invalidRows) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Code:     types.CodeCountryCodeInvalid,
			Message:  fmt.Sprintf("%d row(s) with country codes outside the accepted set", len(invalidRows)),
			Column:   col,
			Rows:     invalidRows,
			Examples: invalidExamples,
		})
	}
	if len(normRows) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityWarning,
			Code:     types.CodeCountryCodeNeedsNorm,
			Message:  fmt.Sprintf("%d row(s) with country codes needing case or whitespace normalization", len(normRows)),
			Column:   col,
			Rows:     normRows,
			Examples: normExamples,
		})
	}
	return issues
}

// checkMultiline reports embedded line breaks. Website columns tolerate
// them (cleaned by rejoining URLs); anywhere else they are errors.
func checkMultiline(t *table.Table, reg registry.Register) []types.Issue {
	var websiteRows, otherRows []int
	var websiteExamples, otherExamples []string

	for _, col := range t.Header {
		for i := range t.Rows {
			value := t.Get(i, col)
			if !strings.ContainsAny(value, "\n\r") {
				continue
			}
			num := table.RowNumber(i)
			preview := strings.NewReplacer("\n", `\n`, "\r", `\r`).Replace(truncate(value, examplePreviewLen))
			if reg.IsWebsiteColumn(col) {
				websiteRows = append(websiteRows, num)
				if len(websiteExamples) < 3 {
					websiteExamples = append(websiteExamples, fmt.Sprintf("row %d: %s", num, preview))
				}
			} else {
				otherRows = append(otherRows, num)
				if len(otherExamples) < 3 {
					otherExamples = append(otherExamples, fmt.Sprintf("row %d, %s: %s", num, col, preview))
				}
			}
		}
	}

	var issues []types.Issue
	if len(websiteRows) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityWarning,
			Code:     types.CodeMultilineWebsite,
			Message:  fmt.Sprintf("%d row(s) with multiline website fields", len(websiteRows)),
			Rows:     websiteRows,
			Examples: websiteExamples,
		})
	}
	if len(otherRows) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Code:     types.CodeMultilineField,
			Message:  fmt.Sprintf("%d row(s) with multiline values in fields not expected to wrap", len(otherRows)),
			Rows:     otherRows,
			Examples: otherExamples,
		})
	}
	return issues
}

// checkEncodingSymptoms flags replacement characters and classic UTF-8
// mis-decoding markers so cleaning and remediation can target them.
func checkEncodingSymptoms(t *table.Table) []types.Issue {
	var rows []int
	var examples []string

	for i := range t.Rows {
		for _, col := range t.Header {
			value := t.Get(i, col)
			if value == "" {
				continue
			}
			if strings.ContainsRune(value, '�') || strings.Contains(value, "Ã") || strings.Contains(value, "Â") {
				rows = append(rows, table.RowNumber(i))
				if len(examples) < 5 {
					examples = append(examples, fmt.Sprintf("row %d, %s: %s", table.RowNumber(i), col, truncate(value, 60)))
				}
				break
			}
		}
	}

	if len(rows) == 0 {
		return nil
	}
	return []types.Issue{{
		Severity: types.SeverityWarning,
		Code:     types.CodeEncodingSuspect,
		Message:  fmt.Sprintf("%d row(s) with replacement characters or UTF-8 mis-decoding markers", len(rows)),
		Rows:     rows,
		Examples: examples,
	}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
