// Package remediation turns residual validation findings into bounded LLM
// tasks, runs them against a provider with model fallback, and applies the
// returned proposals under guardrail policy.
package remediation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
	"github.com/regdata/register-pipeline/internal/validation"
)

// identifyRow builds the most specific stable identifier available for a
// data row. A valid LEI is the primary key; when the same LEI appears on
// several rows the authority and service-country columns disambiguate.
// Rows without a usable LEI fall back to a content hash.
func identifyRow(t *table.Table, reg registry.Register, row int, leiCounts map[string]int) types.RowIdentifier {
	lei := strings.TrimSpace(t.Get(row, registry.IdentifierColumn))
	if validation.LEIPattern.MatchString(lei) {
		id := types.RowIdentifier{LEI: lei}
		if leiCounts[lei] > 1 {
			id.Authority = t.Get(row, reg.AuthorityColumn)
			id.ServiceCountry = t.Get(row, reg.CountryCodeColumn)
		}
		return id
	}
	return types.RowIdentifier{SyntheticID: syntheticRowID(t, reg, row)}
}

// syntheticRowID hashes the register name, the row's position and a fixed
// tuple of stable fields. The position keeps byte-identical rows apart, so
// the identifier stays unique within a run while remaining reproducible
// across runs over the same cleaned file.
func syntheticRowID(t *table.Table, reg registry.Register, row int) string {
	h := sha256.New()
	h.Write([]byte(reg.Type))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(row)))
	for _, col := range []string{registry.IdentifierColumn, reg.NameColumn, reg.AuthorityColumn} {
		h.Write([]byte{0})
		h.Write([]byte(t.Get(row, col)))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// countLEIs tallies valid identifiers so identifyRow knows which need the
// composite disambiguation.
func countLEIs(t *table.Table) map[string]int {
	counts := make(map[string]int)
	for i := 0; i < t.NumRows(); i++ {
		lei := strings.TrimSpace(t.Get(i, registry.IdentifierColumn))
		if validation.LEIPattern.MatchString(lei) {
			counts[lei]++
		}
	}
	return counts
}

// ResolveRow finds the single data row an identifier names. Application is
// refused rather than guessed when the identifier matches zero rows or more
// than one.
func ResolveRow(t *table.Table, reg registry.Register, id types.RowIdentifier) (int, error) {
	var matches []int
	switch {
	case id.LEI != "":
		for i := 0; i < t.NumRows(); i++ {
			if strings.TrimSpace(t.Get(i, registry.IdentifierColumn)) != id.LEI {
				continue
			}
			if id.Authority != "" && t.Get(i, reg.AuthorityColumn) != id.Authority {
				continue
			}
			if id.ServiceCountry != "" && t.Get(i, reg.CountryCodeColumn) != id.ServiceCountry {
				continue
			}
			matches = append(matches, i)
		}
	case id.SyntheticID != "":
		for i := 0; i < t.NumRows(); i++ {
			if syntheticRowID(t, reg, i) == id.SyntheticID {
				matches = append(matches, i)
			}
		}
	default:
		return 0, fmt.Errorf("row identifier is empty")
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return 0, fmt.Errorf("row identifier %s matches no rows", id.Key())
	default:
		return 0, fmt.Errorf("row identifier %s is ambiguous (%d rows)", id.Key(), len(matches))
	}
}
