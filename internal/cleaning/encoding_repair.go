package cleaning

import (
	"strings"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

// replacementChar is the marker decoders emit for bytes lost in a bad
// encoding round-trip.
const replacementChar = "�"

// lossRepairs recover German text where a single lost byte has a known
// context. Applied only to values carrying the replacement character.
var lossRepairs = []struct{ broken, fixed string }{
	{"Stra" + replacementChar + "e", "Straße"},
	{"stra" + replacementChar + "e", "straße"},
	{"L" + replacementChar + "w", "Löw"},
	{"l" + replacementChar + "w", "löw"},
	{"M" + replacementChar + "nchen", "München"},
	{"M" + replacementChar + "nster", "Münster"},
	{"F" + replacementChar + "hr", "Führ"},
	{"gro" + replacementChar + "e", "große"},
}

// mojibakeRepairs undo UTF-8 text mis-decoded as a single-byte charset.
// Entries sharing the â€ prefix are ordered longest first; the bare
// â€ fallback sits below them so it only catches a closing quote whose
// final byte the bad decode dropped outright. The ß damage comes in two
// shapes depending on whether the decode went through windows-1252 or
// latin-1, where the second byte survives as an invisible control. None
// of the outputs contain an input, which keeps the table idempotent.
var mojibakeRepairs = []struct{ broken, fixed string }{
	{"â€œ", "“"},
	{"â€™", "’"},
	{"â€˜", "‘"},
	{"â€“", "–"},
	{"â€”", "—"},
	{"â€\u009d", "”"},
	{"â€", "”"},
	{"Ã¤", "ä"},
	{"Ã¶", "ö"},
	{"Ã¼", "ü"},
	{"Ã„", "Ä"},
	{"Ã–", "Ö"},
	{"Ãœ", "Ü"},
	{"ÃŸ", "ß"},
	{"Ã\u009f", "ß"},
	{"Ã©", "é"},
	{"Ã¨", "è"},
	{"Ã¡", "á"},
	{"Ã³", "ó"},
	{"Ã§", "ç"},
	{"Â·", "·"},
	{"Â ", " "},
}

// repairEncodingLoss handles replacement-character damage in text columns.
// Known patterns are repaired from the table; a value still carrying the
// marker afterwards is left unchanged and flagged for remediation.
func repairEncodingLoss(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	var changes []types.Change
	var flags []types.Flag

	cols := append(append([]string{}, reg.TextColumns...), reg.WebsiteColumns...)
	for _, col := range cols {
		if !t.HasColumn(col) {
			continue
		}
		for i := range t.Rows {
			original := t.Get(i, col)
			if !strings.Contains(original, replacementChar) {
				continue
			}
			fixed := original
			for _, r := range lossRepairs {
				fixed = strings.ReplaceAll(fixed, r.broken, r.fixed)
			}
			if strings.Contains(fixed, replacementChar) {
				// Partial repairs would hide the remaining damage;
				// keep the original and flag it.
				flags = append(flags, types.Flag{
					Type:   FlagEncodingLoss,
					Row:    table.RowNumber(i),
					Column: col,
					Value:  capValue(original),
					Reason: "replacement character not covered by the known repair table",
				})
				continue
			}
			_ = t.Set(i, col, fixed)
			changes = append(changes, change(ChangeEncodingLoss, table.RowNumber(i), col, original, fixed))
		}
	}
	return changes, flags
}

// repairLocaleText fixes known mojibake sequences in text columns. Unlike
// the loss pass this one is purely table-driven: every fix is a certain,
// lossless rewrite.
func repairLocaleText(t *table.Table, reg registry.Register) ([]types.Change, []types.Flag) {
	var changes []types.Change
	for _, col := range reg.TextColumns {
		if !t.HasColumn(col) {
			continue
		}
		for i := range t.Rows {
			original := t.Get(i, col)
			if original == "" {
				continue
			}
			fixed := original
			for _, r := range mojibakeRepairs {
				fixed = strings.ReplaceAll(fixed, r.broken, r.fixed)
			}
			if fixed != original {
				_ = t.Set(i, col, fixed)
				changes = append(changes, change(ChangeTextEncoding, table.RowNumber(i), col, original, fixed))
			}
		}
	}
	return changes, nil
}
