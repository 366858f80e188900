// Package model defines core data structures for flightarchive.
package model

import "strings"

// Cell is a single worksheet cell as read from a workbook.
// Text is the value as the spreadsheet displays it; Raw is the unformatted
// stored value (Excel serial numbers for dates, plain digits for numbers).
type Cell struct {
	Text string
	Raw  string
}

// TextCell builds a cell whose raw and displayed values are identical.
func TextCell(s string) Cell {
	return Cell{Text: s, Raw: s}
}

// Trimmed returns the displayed value without surrounding whitespace.
func (c Cell) Trimmed() string {
	return strings.TrimSpace(c.Text)
}

// IsBlank reports whether the cell holds nothing but whitespace.
func (c Cell) IsBlank() bool {
	return strings.TrimSpace(c.Text) == "" && strings.TrimSpace(c.Raw) == ""
}

// Row is one worksheet row. Rows may be shorter than the header; trailing
// empty cells are not stored by the reader.
type Row []Cell

// At returns the cell at index i, or a zero cell when the row is too short.
func (r Row) At(i int) (Cell, bool) {
	if i < 0 || i >= len(r) {
		return Cell{}, false
	}
	return r[i], true
}

// TextRow converts plain strings into a row. Used by tests and tools.
func TextRow(values ...string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = TextCell(v)
	}
	return row
}
