package cleaning

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
	"github.com/regdata/register-pipeline/internal/validation"
)

// nonAlphanumeric strips everything outside the identifier alphabet.
func nonAlphanumeric(r rune) bool {
	return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

// repairIdentifiers applies the ordered LEI fix attempts: whitespace and
// trailing-punctuation strip, spreadsheet scientific-notation recovery,
// then a last-resort non-alphanumeric strip. A value that is still invalid
// afterwards keeps whatever partial repairs applied and is flagged; the
// cleaner never invents identifier characters.
func repairIdentifiers(t *table.Table, _ registry.Register) ([]types.Change, []types.Flag) {
	col := registry.IdentifierColumn
	if !t.HasColumn(col) {
		return nil, nil
	}

	var changes []types.Change
	var flags []types.Flag
	for i := range t.Rows {
		original := t.Get(i, col)
		lei := strings.TrimSpace(original)
		if lei == "" {
			continue
		}
		if validation.LEIPattern.MatchString(lei) {
			if lei != original {
				// Trimming whitespace is the one identifier edit
				// that is always permitted.
				_ = t.Set(i, col, lei)
				changes = append(changes, change(ChangeLEIStripped, table.RowNumber(i), col, original, lei))
			}
			continue
		}

		if stripped := strings.TrimRight(lei, ".,;:"); stripped != lei {
			lei = stripped
			_ = t.Set(i, col, lei)
			changes = append(changes, change(ChangeLEIPunct, table.RowNumber(i), col, original, lei))
			if validation.LEIPattern.MatchString(lei) {
				continue
			}
		}

		upper := strings.ToUpper(lei)
		if strings.Contains(upper, "E+") || strings.Contains(upper, "E-") {
			if recovered, ok := recoverScientificNotation(lei); ok {
				_ = t.Set(i, col, recovered)
				changes = append(changes, change(ChangeLEINotation, table.RowNumber(i), col, lei, recovered))
				continue
			}
			// A spreadsheet already destroyed the value; stripping
			// characters from the notation would fabricate digits.
			flags = append(flags, types.Flag{
				Type:   FlagLEIInvalid,
				Row:    table.RowNumber(i),
				Column: col,
				Value:  capValue(lei),
				Reason: "spreadsheet scientific notation not recoverable to 20 characters",
			})
			continue
		}

		if cleaned := strings.Map(func(r rune) rune {
			if nonAlphanumeric(r) {
				return -1
			}
			return r
		}, upper); len(cleaned) == 20 && cleaned != lei {
			_ = t.Set(i, col, cleaned)
			changes = append(changes, change(ChangeLEIStripped, table.RowNumber(i), col, lei, cleaned))
			continue
		}

		flags = append(flags, types.Flag{
			Type:   FlagLEIInvalid,
			Row:    table.RowNumber(i),
			Column: col,
			Value:  capValue(lei),
			Reason: fmt.Sprintf("invalid format after repair attempts (length %d, expected 20)", len(lei)),
		})
	}
	return changes, flags
}

// recoverScientificNotation attempts to undo a spreadsheet's conversion of
// an all-digit identifier into scientific notation. Recovery succeeds only
// when the expansion is exactly 20 digits; anything else is unrecoverable
// because the original digits are gone.
func recoverScientificNotation(value string) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f <= 0 {
		return "", false
	}
	digits, _ := big.NewFloat(f).Int(nil)
	recovered := digits.Text(10)
	if len(recovered) != 20 || !validation.LEIPattern.MatchString(recovered) {
		return "", false
	}
	return recovered, true
}

// mergeDuplicateIdentifiers collapses rows sharing an identifier into one
// logical row: multi-value fields (services, countries, websites) union,
// scalar fields keep the first non-empty value. Registers where one LEI
// legitimately spans rows opt out via config.
func mergeDuplicateIdentifiers(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	if !reg.MergeDuplicateIdentifiers || !t.HasColumn(registry.IdentifierColumn) {
		return nil, nil
	}

	keptByLEI := make(map[string]int) // LEI -> index into newRows
	keptRowNumber := make(map[string]int)
	var newRows [][]string
	var changes []types.Change

	for i := range t.Rows {
		lei := strings.TrimSpace(t.Get(i, registry.IdentifierColumn))
		if !validation.LEIPattern.MatchString(lei) {
			newRows = append(newRows, t.Rows[i])
			continue
		}
		keptIdx, seen := keptByLEI[lei]
		if !seen {
			keptByLEI[lei] = len(newRows)
			keptRowNumber[lei] = table.RowNumber(i)
			newRows = append(newRows, t.Rows[i])
			continue
		}

		base := newRows[keptIdx]
		for c, col := range t.Header {
			dupVal := ""
			if c < len(t.Rows[i]) {
				dupVal = t.Rows[i][c]
			}
			if strings.TrimSpace(dupVal) == "" {
				continue
			}
			baseVal := ""
			if c < len(base) {
				baseVal = base[c]
			}
			merged := mergeCell(col, baseVal, dupVal, reg)
			if merged != baseVal {
				for len(base) <= c {
					base = append(base, "")
				}
				base[c] = merged
				changes = append(changes, change(ChangeDuplicateMerge, keptRowNumber[lei], col, baseVal, merged))
			}
		}
		newRows[keptIdx] = base
		changes = append(changes, change(ChangeDuplicateMerge, table.RowNumber(i), registry.IdentifierColumn,
			lei, fmt.Sprintf("merged into row %d", keptRowNumber[lei])))
	}

	if len(newRows) != len(t.Rows) {
		t.Rows = newRows
	}
	return changes, nil
}

// mergeCell combines one duplicate cell into the kept row's cell.
func mergeCell(col, baseVal, dupVal string, reg registry.Register) string {
	switch {
	case col == reg.ServiceCodeColumn:
		codes := unionServiceCodes(baseVal, dupVal)
		if len(codes) == 0 {
			return firstNonEmpty(baseVal, dupVal)
		}
		entries := make([]string, len(codes))
		for i, code := range codes {
			entries[i] = fmt.Sprintf("%s. %s", code, registry.ServiceDescriptions[code])
		}
		return strings.Join(entries, " "+registry.MultiValueDelimiter+" ")
	case col == reg.CountryCodeColumn:
		return unionSorted(registry.SplitCountryCodes(baseVal), registry.SplitCountryCodes(dupVal))
	case reg.IsWebsiteColumn(col):
		return unionOrdered(registry.SplitMultiValue(baseVal), registry.SplitMultiValue(dupVal))
	default:
		return firstNonEmpty(baseVal, dupVal)
	}
}

func unionServiceCodes(a, b string) []string {
	codesA, _ := registry.ExtractServiceCodes(a)
	codesB, _ := registry.ExtractServiceCodes(b)
	set := make(map[string]bool)
	for _, c := range append(codesA, codesB...) {
		set[c] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func unionSorted(a, b []string) string {
	set := make(map[string]bool)
	for _, v := range append(a, b...) {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return strings.Join(out, registry.MultiValueDelimiter)
}

func unionOrdered(a, b []string) string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range append(a, b...) {
		if v = strings.TrimSpace(v); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return strings.Join(out, registry.MultiValueDelimiter)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
