package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	enc "github.com/regdata/register-pipeline/internal/encoding"
	"github.com/regdata/register-pipeline/internal/types"
)

// ReadFile loads a CSV extract: detects the byte encoding, decodes to
// UTF-8 and parses. Rows are kept as read, including ragged ones; the
// validators report shape problems rather than the reader rejecting them.
func ReadFile(path string) (*Table, types.EncodingInfo, error) {
	data, info, err := enc.ReadFile(path)
	if err != nil {
		return nil, info, err
	}
	t, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, info, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, info, nil
}

// Parse reads CSV from r. FieldsPerRecord is disabled so column-count
// mismatches surface as validation issues instead of parse errors, and
// LazyQuotes tolerates the stray quotes common in published extracts.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty input: no header row")
	}
	return New(records[0], records[1:]), nil
}

// Write serializes the table as UTF-8 CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	width := len(t.Header)
	for _, row := range t.Rows {
		out := row
		if len(row) != width {
			out = make([]string, width)
			copy(out, row)
		}
		if err := cw.Write(out); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
