package cleaning

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

const (
	validLEI      = "529900T8BM49AURSDO55"
	otherValidLEI = "5493001KJTIIGC8Y1R12"
)

func caspRegister(t *testing.T) registry.Register {
	t.Helper()
	reg, err := registry.Get("casp")
	require.NoError(t, err)
	return reg
}

func caspTable(rows ...[]string) *table.Table {
	header := []string{
		"ae_lei", "ae_commercial_name", "ae_address", "ae_website",
		"ac_serviceCode", "ac_serviceCode_cou",
		"ac_authorisationNotificationDate", "ac_lastupdate",
	}
	return table.New(header, rows)
}

func TestCleanFixesWhitespace(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "  Alpha Exchange  ", "Main St 1", "https://alpha.example",
			fmt.Sprintf("a. %s", registry.ServiceDescriptions["a"]), "DE",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "Alpha Exchange", res.Table.Get(0, "ae_commercial_name"))
	require.Len(t, res.Changes, 1)
	assert.Equal(t, ChangeWhitespace, res.Changes[0].Type)
	assert.Equal(t, 2, res.Changes[0].Row)
	// Input is untouched.
	assert.Equal(t, "  Alpha Exchange  ", in.Get(0, "ae_commercial_name"))
}

func TestCleanRepairsDateGlitches(t *testing.T) {
	cases := map[string]string{
		"01/12/.2025": "01/12/2025",
		"01/12.2025":  "01/12/2025",
		"01/12 .2025": "01/12/2025",
		"2025-12-01":  "01/12/2025",
		"5/3/2024":    "05/03/2024",
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			in := caspTable(
				[]string{validLEI, "Alpha", "", "", "a", "DE", raw, "01/02/2024"},
			)
			res := Clean(in, caspRegister(t))
			assert.Equal(t, want, res.Table.Get(0, "ac_authorisationNotificationDate"))
			assert.Empty(t, res.Flags)
		})
	}
}

func TestCleanFlagsUnparsableDateUnchanged(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "", "", "a", "DE", "not a date", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "not a date", res.Table.Get(0, "ac_authorisationNotificationDate"))
	require.Len(t, res.Flags, 1)
	assert.Equal(t, FlagDateUnparsable, res.Flags[0].Type)
	assert.Equal(t, "ac_authorisationNotificationDate", res.Flags[0].Column)
}

func TestCleanRepairsMojibake(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "MÃ¼nchner BÃ¶rse", "StraÃe 5", "",
			"a", "DE", "01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "Münchner Börse", res.Table.Get(0, "ae_commercial_name"))
	assert.Equal(t, "Straße 5", res.Table.Get(0, "ae_address"))
}

func TestCleanRepairsBothEszettMojibakeShapes(t *testing.T) {
	in := caspTable(
		// windows-1252 shape: 0xDF round-trips to a visible Ÿ.
		[]string{validLEI, "Alpha", "GroÃŸe Allee 7", "", "a", "DE",
			"01/02/2024", "01/02/2024"},
		// latin-1 shape: the second byte survives as the 0x9F control.
		[]string{otherValidLEI, "Beta", "GroÃe Allee 7", "", "a", "DE",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "Große Allee 7", res.Table.Get(0, "ae_address"))
	assert.Equal(t, "Große Allee 7", res.Table.Get(1, "ae_address"))
}

func TestCleanRepairsCurlyQuoteMojibake(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Donâ€™s Exchange", "â€œQuotedâ€ Street", "", "a", "DE",
			"01/02/2024", "01/02/2024"},
		// Closing quote whose final byte the bad decode dropped outright.
		[]string{otherValidLEI, "Beta", "â€œQuotedâ€ Street", "", "a", "DE",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "Don’s Exchange", res.Table.Get(0, "ae_commercial_name"))
	assert.Equal(t, "“Quoted” Street", res.Table.Get(0, "ae_address"))
	assert.Equal(t, "“Quoted” Street", res.Table.Get(1, "ae_address"))
}

func TestCleanRepairsReplacementCharLoss(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "Hauptstra�e 12", "", "a", "DE",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "Hauptstraße 12", res.Table.Get(0, "ae_address"))
	assert.Empty(t, res.Flags)
}

func TestCleanFlagsUnrepairableDataLoss(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "Xq�zk 9", "", "a", "DE",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	// No repair table entry matches; the original is kept and flagged.
	assert.Equal(t, "Xq�zk 9", res.Table.Get(0, "ae_address"))
	require.Len(t, res.Flags, 1)
	assert.Equal(t, FlagEncodingLoss, res.Flags[0].Type)
}

func TestCleanJoinsMultilineWebsites(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "", "https://a.example\nhttps://b.example",
			"a", "DE", "01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "https://a.example|https://b.example", res.Table.Get(0, "ae_website"))
}

func TestCleanFlattensMultilineText(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "Main St 1\n10115 Berlin", "", "a", "DE",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "Main St 1 10115 Berlin", res.Table.Get(0, "ae_address"))
}

func TestCleanNormalizesCountryCodes(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "", "", "a", "de| FR |de|EL",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	// EL stays in the set; its GR alias is added alongside.
	assert.Equal(t, "DE|EL|FR|GR", res.Table.Get(0, "ac_serviceCode_cou"))
}

func TestCleanNormalizesServiceCodes(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "", "", "c|a. custody", "DE",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	want := fmt.Sprintf("a. %s | c. %s",
		registry.ServiceDescriptions["a"], registry.ServiceDescriptions["c"])
	assert.Equal(t, want, res.Table.Get(0, "ac_serviceCode"))
}

func TestCleanRecoversScientificNotationLEI(t *testing.T) {
	in := caspTable(
		[]string{"9.6E+19", "Alpha", "", "", "a", "DE", "01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "96000000000000000000", res.Table.Get(0, "ae_lei"))
	var types []string
	for _, c := range res.Changes {
		types = append(types, c.Type)
	}
	assert.Contains(t, types, ChangeLEINotation)
	assert.Empty(t, res.Flags)
}

func TestCleanFlagsUnrecoverableScientificNotation(t *testing.T) {
	// Expands to 21 digits; the original characters are gone, so the value
	// must stay as-is and be flagged rather than truncated.
	in := caspTable(
		[]string{"9.6E+20", "Alpha", "", "", "a", "DE", "01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "9.6E+20", res.Table.Get(0, "ae_lei"))
	require.Len(t, res.Flags, 1)
	assert.Equal(t, FlagLEIInvalid, res.Flags[0].Type)
}

func TestCleanStripsTrailingLEIPunctuation(t *testing.T) {
	in := caspTable(
		[]string{validLEI + ".", "Alpha", "", "", "a", "DE", "01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, validLEI, res.Table.Get(0, "ae_lei"))
	var types []string
	for _, c := range res.Changes {
		types = append(types, c.Type)
	}
	assert.Contains(t, types, ChangeLEIPunct)
}

func TestCleanMergesDuplicateLEIRows(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "", "https://a.example", "a|b", "DE",
			"01/02/2024", "01/02/2024"},
		[]string{validLEI, "Alpha", "Main St 1", "https://b.example", "c", "FR",
			"01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	require.Equal(t, 1, res.Table.NumRows())
	assert.Equal(t, 2, res.RowsBefore)
	assert.Equal(t, 1, res.RowsAfter)

	want := fmt.Sprintf("a. %s | b. %s | c. %s",
		registry.ServiceDescriptions["a"],
		registry.ServiceDescriptions["b"],
		registry.ServiceDescriptions["c"])
	assert.Equal(t, want, res.Table.Get(0, "ac_serviceCode"))
	assert.Equal(t, "DE|FR", res.Table.Get(0, "ac_serviceCode_cou"))
	assert.Equal(t, "https://a.example|https://b.example", res.Table.Get(0, "ae_website"))
	// Scalar columns keep the first non-empty value.
	assert.Equal(t, "Main St 1", res.Table.Get(0, "ae_address"))
}

func TestCleanDoesNotMergeWhenRegisterOptsOut(t *testing.T) {
	reg, err := registry.Get("other")
	require.NoError(t, err)

	in := table.New(
		[]string{"ae_lei", "ae_lei_name", "wp_url", "wp_lastupdate"},
		[][]string{
			{validLEI, "Alpha", "https://a.example", "01/02/2024"},
			{validLEI, "Alpha", "https://b.example", "01/02/2024"},
		},
	)
	res := Clean(in, reg)

	assert.Equal(t, 2, res.Table.NumRows())
}

func TestCleanAppliesKnownCorrections(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "e Toro", "", "", "a", "DE", "01/02/2024", "01/02/2024"},
	)
	res := Clean(in, caspRegister(t))

	assert.Equal(t, "eToro", res.Table.Get(0, "ae_commercial_name"))
	var types []string
	for _, c := range res.Changes {
		types = append(types, c.Type)
	}
	assert.Contains(t, types, ChangeKnownValue)
}

func TestCleanAuditsRaggedRowReshape(t *testing.T) {
	in := caspTable(
		[]string{validLEI, "Alpha", "Main St 1", "", "a"},
		[]string{otherValidLEI, "Beta", "", "", "a", "DE",
			"01/02/2024", "01/02/2024", "stray cell"},
	)
	reg := caspRegister(t)
	res := Clean(in, reg)

	var squared []int
	for _, c := range res.Changes {
		if c.Type == ChangeRowSquared {
			squared = append(squared, c.Row)
		}
	}
	assert.Equal(t, []int{2, 3}, squared)

	var truncated []types.Flag
	for _, f := range res.Flags {
		if f.Type == FlagRowTruncated {
			truncated = append(truncated, f)
		}
	}
	require.Len(t, truncated, 1)
	assert.Equal(t, 3, truncated[0].Row)
	assert.Contains(t, truncated[0].Value, "stray cell")

	// Squared output is stable: a second run reshapes nothing.
	second := Clean(res.Table, reg)
	for _, c := range second.Changes {
		assert.NotEqual(t, ChangeRowSquared, c.Type)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	in := caspTable(
		[]string{validLEI + " ", " MÃ¼nchen AG ", "Row 1\nLine 2",
			"https://a.example\nhttps://b.example", "b|a. custody", "el|de",
			"01/12/.2025", "2024-02-01"},
		[]string{otherValidLEI, "e Toro", "Hauptstra�e 12", "", "c", "FR",
			"01/02/2024", "01/02/2024"},
		[]string{validLEI, "München AG", "", "", "d", "IT",
			"01/12/2025", "01/02/2024"},
	)
	reg := caspRegister(t)

	first := Clean(in, reg)
	require.NotEmpty(t, first.Changes)

	second := Clean(first.Table, reg)
	assert.Empty(t, second.Changes, "second pass changes: %+v", second.Changes)
	assert.Equal(t, first.Table.Rows, second.Table.Rows)
}

func TestCleanIsDeterministic(t *testing.T) {
	build := func() *table.Table {
		return caspTable(
			[]string{validLEI, " Alpha ", "StraÃe 5", "", "b|a", "fr|de|el",
				"01/12/.2025", "01/02/2024"},
			[]string{validLEI, "Alpha", "", "https://b.example", "c", "IT",
				"01/02/2024", "01/02/2024"},
		)
	}
	reg := caspRegister(t)

	a := Clean(build(), reg)
	b := Clean(build(), reg)

	assert.Equal(t, a.Changes, b.Changes)
	assert.Equal(t, a.Flags, b.Flags)
	assert.Equal(t, a.Table.Rows, b.Table.Rows)
}

func TestMergeIdentityIsStable(t *testing.T) {
	// Merging a merged row with nothing new keeps it byte-identical.
	in := caspTable(
		[]string{validLEI, "Alpha", "", "https://a.example", "a|b", "DE",
			"01/02/2024", "01/02/2024"},
		[]string{validLEI, "Alpha", "", "https://a.example", "a", "DE",
			"01/02/2024", "01/02/2024"},
	)
	reg := caspRegister(t)

	first := Clean(in, reg)
	second := Clean(first.Table, reg)

	assert.Equal(t, first.Table.Rows, second.Table.Rows)
	assert.Empty(t, second.Changes)
}
