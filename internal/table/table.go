// Package table provides the in-memory snapshot of one CSV extract: an
// ordered header plus raw string rows, with schema-checked access by column
// name. Cleaner passes treat snapshots as immutable inputs and return new
// ones, which keeps reruns idempotent and stage outputs independent.
package table

import (
	"fmt"
)

// Table is one CSV snapshot. Rows hold raw cell strings and may be ragged
// (shorter or longer than the header) until the cleaner squares them;
// accessors treat missing trailing cells as empty.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// New builds a table and its column index. Duplicate header names keep the
// first position, matching how the validators report duplicates.
func New(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, ok := t.index[h]; !ok {
			t.index[h] = i
		}
	}
}

// ColumnIndex returns the position of a column by exact name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// RowNumber converts a 0-based row index to the 1-based CSV row number
// (the header is row 1, data starts at row 2).
func RowNumber(i int) int { return i + 2 }

// Get returns the cell at (row, column name), or empty string when the row
// is too short for the column.
func (t *Table) Get(row int, col string) string {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if i >= len(r) {
		return ""
	}
	return r[i]
}

// Set writes the cell at (row, column name). Rows shorter than the column
// position are padded first.
func (t *Table) Set(row int, col, value string) error {
	i, ok := t.index[col]
	if !ok {
		return fmt.Errorf("unknown column %q", col)
	}
	if row < 0 || row >= len(t.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	for len(t.Rows[row]) <= i {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][i] = value
	return nil
}

// Clone returns a deep copy. Cleaner passes clone before editing so each
// pass maps one immutable snapshot to the next.
func (t *Table) Clone() *Table {
	header := make([]string, len(t.Header))
	copy(header, t.Header)
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = make([]string, len(r))
		copy(rows[i], r)
	}
	return New(header, rows)
}

// Square pads or truncates every row to the header width, returning the
// 1-based row numbers that were ragged.
func (t *Table) Square() []int {
	width := len(t.Header)
	var ragged []int
	for i, r := range t.Rows {
		if len(r) == width {
			continue
		}
		ragged = append(ragged, RowNumber(i))
		if len(r) < width {
			padded := make([]string, width)
			copy(padded, r)
			t.Rows[i] = padded
		} else {
			t.Rows[i] = r[:width]
		}
	}
	return ragged
}
