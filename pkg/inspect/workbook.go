package inspect

import (
	"fmt"

	"github.com/tzl-ops/flightarchive/internal/model"
	"github.com/tzl-ops/flightarchive/pkg/ingest/detect"
	"github.com/tzl-ops/flightarchive/pkg/ingest/sources"
)

// SheetReport describes how one worksheet classifies.
type SheetReport struct {
	Name    string         `json:"name"`
	Layout  string         `json:"layout"`
	Outcome string         `json:"outcome"`
	Reason  string         `json:"reason"`
	Rows    int            `json:"rows"` // data rows with a non-blank first cell
	Header  []string       `json:"header"`
	Columns map[string]int `json:"columns,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// WorkbookReport describes every sheet of a workbook.
type WorkbookReport struct {
	Path   string        `json:"path"`
	Sheets []SheetReport `json:"sheets"`
}

// Counts tallies sheets by outcome.
func (r *WorkbookReport) Counts() map[string]int {
	out := make(map[string]int)
	for _, s := range r.Sheets {
		out[s.Outcome]++
	}
	return out
}

// InspectWorkbook classifies every sheet of the workbook at path. A nil
// classifier uses the default catalog. Unreadable sheets are reported, not
// returned as errors.
func InspectWorkbook(path string, classifier *detect.Classifier) (*WorkbookReport, error) {
	if classifier == nil {
		classifier = detect.NewClassifier(nil)
	}

	wb, err := sources.OpenWorkbook(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer wb.Close()

	report := &WorkbookReport{Path: path}
	for _, name := range wb.Sheets() {
		report.Sheets = append(report.Sheets, inspectSheet(wb, name, classifier))
	}
	return report, nil
}

func inspectSheet(wb *sources.Workbook, name string, classifier *detect.Classifier) SheetReport {
	sr := SheetReport{Name: name, Layout: detect.LayoutUnknown.String()}

	rows, err := wb.Rows(name)
	if err != nil {
		sr.Outcome = "unreadable"
		sr.Error = err.Error()
		return sr
	}
	if len(rows) == 0 {
		sr.Outcome = "empty"
		sr.Reason = "no rows"
		return sr
	}

	sr.Header = headerText(rows[0])
	for _, row := range rows[1:] {
		if c, ok := row.At(0); ok && !c.IsBlank() {
			sr.Rows++
		}
	}

	cls := classifier.Classify(rows[0])
	sr.Outcome = cls.Outcome.String()
	sr.Reason = cls.Reason
	if cls.Usable() {
		sr.Layout = cls.Descriptor.Layout.String()
		sr.Columns = cls.Descriptor.Columns.Resolved()
	}
	return sr
}

func headerText(row model.Row) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Trimmed()
	}
	return out
}
