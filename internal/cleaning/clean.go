// Package cleaning implements the deterministic cleaner: a fixed,
// order-dependent sequence of idempotent fixer passes. Each pass is a pure
// function from one table snapshot to the next plus the changes it made;
// rerunning the sequence on its own output yields zero further changes.
// Values a pass cannot repair are flagged, never dropped and never
// blocking: the cleaner always completes and returns a usable CSV.
package cleaning

import (
	"fmt"
	"strings"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

// Change types form a closed vocabulary mirrored in the cleaning-report
// schema.
const (
	ChangeWhitespace       = "WHITESPACE_FIXED"
	ChangeEncodingLoss     = "ENCODING_DATA_LOSS_FIXED"
	ChangeTextEncoding     = "TEXT_ENCODING_FIXED"
	ChangeDateFixed        = "DATE_FIXED"
	ChangeMultilineWebsite = "MULTILINE_WEBSITE_FIXED"
	ChangeMultiline        = "MULTILINE_FIXED"
	ChangeCountryCode      = "COUNTRY_CODE_NORMALIZED"
	ChangeServiceCode      = "SERVICE_CODE_NORMALIZED"
	ChangeLEIPunct         = "LEI_TRAILING_PUNCT_REMOVED"
	ChangeLEINotation      = "LEI_EXCEL_NOTATION_FIXED"
	ChangeLEIStripped      = "LEI_CLEANED"
	ChangeDuplicateMerge   = "DUPLICATE_LEI_MERGED"
	ChangeKnownValue       = "KNOWN_VALUE_CORRECTED"
	ChangeRowSquared       = "ROW_SQUARED"
)

// Flag types for values left unchanged.
const (
	FlagEncodingLoss   = "ENCODING_DATA_LOSS"
	FlagDateUnparsable = "DATE_UNPARSABLE"
	FlagLEIInvalid     = "LEI_INVALID"
	FlagRowTruncated   = "ROW_TRUNCATED"
)

// changeValueCap bounds old/new values stored in change records.
const changeValueCap = 100

// Result is the output of one cleaner run.
type Result struct {
	Table      *table.Table
	Changes    []types.Change
	Flags      []types.Flag
	RowsBefore int
	RowsAfter  int
}

// pass is one fixer step. Passes receive a snapshot they may freely mutate
// (the orchestrator clones between steps) and return changes and flags.
type pass func(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag)

// passes is the fixed order. Whitespace first so later passes see trimmed
// values; the duplicate merge runs late so it unions already-normalized
// fields; clerical corrections last because they match exact values.
var passes = []pass{
	fixWhitespace,
	repairEncodingLoss,
	repairLocaleText,
	fixDates,
	mergeMultiline,
	normalizeCountryCodes,
	normalizeServiceCodes,
	repairIdentifiers,
	mergeDuplicateIdentifiers,
	applyKnownCorrections,
}

// Clean runs the full pass sequence over a snapshot and returns the cleaned
// copy, the audit change list, and the unresolved flags. The input table is
// not modified.
func Clean(t *table.Table, reg registry.Register) Result {
	work := t.Clone()
	result := Result{RowsBefore: work.NumRows()}

	// Ragged rows break per-column indexing, so they are squared before the
	// passes run. The reshape is audited like any other change, and dropped
	// surplus cells are flagged since that is data loss.
	width := len(work.Header)
	for i, row := range work.Rows {
		if len(row) == width {
			continue
		}
		if len(row) > width {
			result.Flags = append(result.Flags, types.Flag{
				Type:   FlagRowTruncated,
				Row:    table.RowNumber(i),
				Value:  capValue(strings.Join(row[width:], "|")),
				Reason: fmt.Sprintf("row has %d cells for %d columns; surplus cells dropped", len(row), width),
			})
		}
		result.Changes = append(result.Changes, change(ChangeRowSquared, table.RowNumber(i), "",
			fmt.Sprintf("%d cells", len(row)), fmt.Sprintf("%d cells", width)))
	}
	work.Square()
	for _, p := range passes {
		changes, flags := p(work, reg)
		result.Changes = append(result.Changes, changes...)
		result.Flags = append(result.Flags, flags...)
	}

	result.Table = work
	result.RowsAfter = work.NumRows()
	return result
}

func capValue(s string) string {
	if len(s) <= changeValueCap {
		return s
	}
	return s[:changeValueCap]
}

func change(typ string, row int, col, oldV, newV string) types.Change {
	return types.Change{
		Type:     typ,
		Row:      row,
		Column:   col,
		OldValue: capValue(oldV),
		NewValue: capValue(newV),
	}
}
