package cleaning

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
	"github.com/regdata/register-pipeline/internal/validation"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// fixWhitespace normalizes whitespace in every cell: non-breaking space to
// plain space, trim, collapse runs. Date and identifier columns are
// excluded; they have dedicated passes with stricter rules.
func fixWhitespace(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	var changes []types.Change
	for _, col := range t.Header {
		if col == registry.IdentifierColumn || reg.IsDateColumn(col) {
			continue
		}
		for i := range t.Rows {
			original := t.Get(i, col)
			if original == "" {
				continue
			}
			fixed := strings.ReplaceAll(original, " ", " ")
			// Line breaks belong to the multiline pass; collapse
			// only horizontal runs here.
			if !strings.ContainsAny(fixed, "\n\r") {
				fixed = whitespaceRun.ReplaceAllString(fixed, " ")
			}
			fixed = strings.TrimSpace(fixed)
			if fixed != original {
				_ = t.Set(i, col, fixed)
				changes = append(changes, change(ChangeWhitespace, table.RowNumber(i), col, original, fixed))
			}
		}
	}
	return changes, nil
}

// fixDates normalizes every date column to the canonical layout, repairing
// the known glitch patterns on the way. Values that still do not parse are
// flagged and left exactly as found; dates are never fabricated.
func fixDates(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	var changes []types.Change
	var flags []types.Flag
	for _, col := range reg.DateColumns {
		if !t.HasColumn(col) {
			continue
		}
		for i := range t.Rows {
			original := t.Get(i, col)
			trimmed := strings.TrimSpace(strings.ReplaceAll(original, " ", " "))
			if trimmed == "" {
				if original != "" {
					_ = t.Set(i, col, "")
					changes = append(changes, change(ChangeDateFixed, table.RowNumber(i), col, original, ""))
				}
				continue
			}
			normalized, ok := normalizeDate(trimmed)
			if !ok {
				flags = append(flags, types.Flag{
					Type:   FlagDateUnparsable,
					Row:    table.RowNumber(i),
					Column: col,
					Value:  capValue(original),
					Reason: "value does not parse under any accepted date format",
				})
				continue
			}
			if normalized != original {
				_ = t.Set(i, col, normalized)
				changes = append(changes, change(ChangeDateFixed, table.RowNumber(i), col, original, normalized))
			}
		}
	}
	return changes, flags
}

// normalizeDate parses a trimmed value via the accepted format set (with
// glitch repair) and reformats it to the canonical layout.
func normalizeDate(value string) (string, bool) {
	candidate := value
	if class := validation.ClassifyDate(value); class.Repairable {
		candidate = class.Repaired
	}
	for _, layout := range registry.DateLayouts {
		if ts, err := time.Parse(layout, candidate); err == nil {
			return ts.Format(registry.DateLayouts[0]), true
		}
	}
	return "", false
}

// mergeMultiline handles embedded line breaks. Website columns split into
// individual URLs (scheme added when missing), dedupe, and rejoin with the
// multi-value delimiter; all other columns flatten breaks to spaces.
func mergeMultiline(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	var changes []types.Change
	for _, col := range t.Header {
		website := reg.IsWebsiteColumn(col)
		for i := range t.Rows {
			original := t.Get(i, col)
			if !strings.ContainsAny(original, "\n\r") {
				continue
			}
			var fixed string
			var typ string
			if website {
				fixed = rejoinURLs(original)
				typ = ChangeMultilineWebsite
			} else {
				fixed = strings.TrimSpace(whitespaceRun.ReplaceAllString(original, " "))
				typ = ChangeMultiline
			}
			if fixed != original {
				_ = t.Set(i, col, fixed)
				changes = append(changes, change(typ, table.RowNumber(i), col, original, fixed))
			}
		}
	}
	return changes, nil
}

// normalizeCountryCodes rewrites multi-value country fields to a trimmed,
// uppercased, deduplicated, sorted pipe-joined form. The EL alias for
// Greece stays in the set alongside GR because both are valid members.
func normalizeCountryCodes(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	col := reg.CountryCodeColumn
	if col == "" || !t.HasColumn(col) {
		return nil, nil
	}
	var changes []types.Change
	for i := range t.Rows {
		original := t.Get(i, col)
		if strings.TrimSpace(original) == "" {
			continue
		}
		set := make(map[string]bool)
		for _, code := range registry.SplitCountryCodes(original) {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code == "" {
				continue
			}
			set[code] = true
			if canonical, ok := registry.CountryAliases[code]; ok {
				set[canonical] = true
			}
		}
		if len(set) == 0 {
			continue
		}
		codes := make([]string, 0, len(set))
		for code := range set {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fixed := strings.Join(codes, registry.MultiValueDelimiter)
		if fixed != original {
			_ = t.Set(i, col, fixed)
			changes = append(changes, change(ChangeCountryCode, table.RowNumber(i), col, original, fixed))
		}
	}
	return changes, nil
}

// normalizeServiceCodes rewrites the service field to the canonical
// "code. description" entries, deduplicated and sorted, joined with the
// multi-value delimiter. Entries without a valid code are dropped from the
// rewrite only when at least one valid code remains; otherwise the value is
// left for validation and remediation to deal with.
func normalizeServiceCodes(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	col := reg.ServiceCodeColumn
	if col == "" || !t.HasColumn(col) {
		return nil, nil
	}
	var changes []types.Change
	for i := range t.Rows {
		original := t.Get(i, col)
		if strings.TrimSpace(original) == "" {
			continue
		}
		codes, _ := registry.ExtractServiceCodes(original)
		if len(codes) == 0 {
			continue
		}
		sort.Strings(codes)
		entries := make([]string, len(codes))
		for j, code := range codes {
			entries[j] = fmt.Sprintf("%s. %s", code, registry.ServiceDescriptions[code])
		}
		fixed := strings.Join(entries, " "+registry.MultiValueDelimiter+" ")
		if fixed != original {
			_ = t.Set(i, col, fixed)
			changes = append(changes, change(ChangeServiceCode, table.RowNumber(i), col, original, fixed))
		}
	}
	return changes, nil
}

// applyKnownCorrections fixes recurring clerical errors from the fixed
// correction list. Matching is exact, so a corrected value never matches
// again.
func applyKnownCorrections(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	col := reg.NameColumn
	if col == "" || !t.HasColumn(col) {
		return nil, nil
	}
	var changes []types.Change
	for i := range t.Rows {
		original := t.Get(i, col)
		if corrected, ok := registry.KnownValueCorrections[original]; ok {
			_ = t.Set(i, col, corrected)
			changes = append(changes, change(ChangeKnownValue, table.RowNumber(i), col, original, corrected))
		}
	}
	return changes, nil
}
