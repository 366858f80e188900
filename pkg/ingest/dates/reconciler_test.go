package dates

import (
	"errors"
	"testing"
	"time"

	"github.com/tzl-ops/flightarchive/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		folder   string
		sheet    string
		cell     model.Cell
		expected time.Time
	}{
		{"sheet wins over cell", 2025, "03. MART", "05", model.TextCell("2024-12-31"), date(2025, time.March, 5)},
		{"sheet with suffix", 2024, "11. NOVEMBAR", "7 (2)", model.Cell{}, date(2024, time.November, 7)},
		{"no day in sheet uses serial", 2023, "01. JANUAR", "Sheet1", model.Cell{Text: "01-05-23", Raw: "44931"}, date(2023, time.January, 5)},
		{"no day in sheet uses text", 2023, "01. JANUAR", "Januar", model.TextCell("05.01.2023"), date(2023, time.January, 5)},
		{"no day in sheet uses iso text", 2025, "01. JANUAR", "Dnevni", model.TextCell("2025-01-05"), date(2025, time.January, 5)},
		{"invalid sheet day falls back to cell", 2025, "02. FEBRUAR", "30", model.TextCell("2025-02-28"), date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		got, err := Resolve(tt.year, tt.folder, tt.sheet, tt.cell)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("%s: Resolve = %s, want %s", tt.name, got.Format("2006-01-02"), tt.expected.Format("2006-01-02"))
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		sheet  string
		cell   model.Cell
	}{
		{"invalid day and empty cell", "02. FEBRUAR", "30", model.Cell{}},
		{"no day and text cell", "01. JANUAR", "Sheet1", model.TextCell("FLYNAS")},
		{"folder without month number", "JANUAR", "05", model.Cell{}},
	}

	for _, tt := range tests {
		_, err := Resolve(2025, tt.folder, tt.sheet, tt.cell)
		var de *DateError
		if !errors.As(err, &de) {
			t.Errorf("%s: expected *DateError, got %v", tt.name, err)
			continue
		}
		if de.Sheet != tt.sheet || de.Reason == "" {
			t.Errorf("%s: unexpected error fields %+v", tt.name, de)
		}
	}
}

func TestLeadingNumber(t *testing.T) {
	tests := []struct {
		input string
		n     int
		ok    bool
	}{
		{"03. MART", 3, true},
		{"12.DECEMBAR", 12, true},
		{" 5", 5, true},
		{"Sheet1", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		n, ok := LeadingNumber(tt.input)
		if n != tt.n || ok != tt.ok {
			t.Errorf("LeadingNumber(%q) = %d, %v, want %d, %v", tt.input, n, ok, tt.n, tt.ok)
		}
	}
}
