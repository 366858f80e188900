package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// Workbook is an open monthly workbook.
type Workbook struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time

	file *excelize.File
}

// OpenWorkbook opens an .xlsx file for reading.
func OpenWorkbook(path string) (*Workbook, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}

	return &Workbook{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		file:    f,
	}, nil
}

// Sheets returns the worksheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// Rows reads every row of a sheet. Each cell carries both the displayed text
// and the raw stored value. Row i of the result is sheet row i+1.
func (w *Workbook) Rows(sheet string) ([]model.Row, error) {
	text, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", sheet, err)
	}
	raw, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read raw rows of %q: %w", sheet, err)
	}

	n := max(len(text), len(raw))
	rows := make([]model.Row, n)
	for i := 0; i < n; i++ {
		var t, r []string
		if i < len(text) {
			t = text[i]
		}
		if i < len(raw) {
			r = raw[i]
		}
		row := make(model.Row, max(len(t), len(r)))
		for j := range row {
			if j < len(t) {
				row[j].Text = t[j]
			}
			if j < len(r) {
				row[j].Raw = r[j]
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}
