// Package dates resolves the calendar date of a worksheet row.
//
// The archive layout is more reliable than cell contents: a sheet named "05"
// in the folder "03. MART" of the 2025 archive is 2025-03-05 even when the
// row's own date cell says otherwise. Cells are only consulted when the sheet
// name carries no day number.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tzl-ops/flightarchive/internal/model"
)

var leadingNumber = regexp.MustCompile(`^\s*(\d+)`)

// cellLayouts are the formatted date strings observed in date cells.
var cellLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
	"02.01.2006.",
	"2.1.2006",
	"2.1.2006.",
	"02.01.06",
	"02/01/2006",
	"2/1/2006",
	"01-02-06",
	time.RFC3339,
}

// Excel serial numbers between these bounds are treated as dates
// (1900-01-01 to 9999-12-31).
const (
	minSerial = 1
	maxSerial = 2958465
)

// DateError reports a row whose date could not be resolved.
type DateError struct {
	Year        int
	MonthFolder string
	Sheet       string
	Value       string
	Reason      string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("dates: cannot resolve date (year %d, folder %q, sheet %q, cell %q): %s",
		e.Year, e.MonthFolder, e.Sheet, e.Value, e.Reason)
}

// LeadingNumber returns the number a name starts with, e.g. 3 for "03. MART"
// or 5 for "5 (2)".
func LeadingNumber(name string) (int, bool) {
	m := leadingNumber.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Resolve returns the authoritative date of a row at midnight UTC.
//
// A sheet name starting with a day number, combined with year and the month
// folder's leading number, wins when it forms a real calendar date.
// Otherwise the cell is parsed: an Excel serial number in the raw value, or a
// formatted date string.
func Resolve(year int, monthFolder, sheetName string, cell model.Cell) (time.Time, error) {
	reason := "sheet name has no day number"

	if day, ok := LeadingNumber(sheetName); ok {
		month, ok := LeadingNumber(monthFolder)
		if !ok {
			reason = "month folder has no month number"
		} else if d, ok := model.NewDate(year, time.Month(month), day); ok {
			return d.Time(), nil
		} else {
			reason = fmt.Sprintf("%04d-%02d-%02d is not a calendar date", year, month, day)
		}
	}

	if t, ok := FromCell(cell); ok {
		return t, nil
	}

	if cell.IsBlank() {
		reason += ", date cell is empty"
	} else {
		reason += ", date cell is not a date"
	}
	return time.Time{}, &DateError{
		Year:        year,
		MonthFolder: monthFolder,
		Sheet:       sheetName,
		Value:       cell.Trimmed(),
		Reason:      reason,
	}
}

// FromCell parses a date cell. The raw value is tried as an Excel serial
// number first, then the displayed text against the known layouts.
func FromCell(cell model.Cell) (time.Time, bool) {
	if raw := strings.TrimSpace(cell.Raw); raw != "" {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial >= minSerial && serial <= maxSerial {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return model.DateOf(t).Time(), true
			}
		}
	}

	for _, s := range []string{cell.Trimmed(), strings.TrimSpace(cell.Raw)} {
		if s == "" {
			continue
		}
		for _, layout := range cellLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return model.DateOf(t).Time(), true
			}
		}
	}
	return time.Time{}, false
}
