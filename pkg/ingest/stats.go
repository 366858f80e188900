package ingest

import (
	"fmt"
	"time"

	"github.com/tzl-ops/flightarchive/internal/model"
	ingesterrors "github.com/tzl-ops/flightarchive/pkg/ingest/errors"
)

// MonthState is a step of the per-month state machine:
//
//	pending -> file_located -> workbook_opened -> sheets_processed -> workbook_closed
//	pending -> skipped      (no workbook in the folder)
//	file_located -> failed  (workbook could not be opened after retry)
type MonthState string

const (
	StatePending         MonthState = "pending"
	StateFileLocated     MonthState = "file_located"
	StateWorkbookOpened  MonthState = "workbook_opened"
	StateSheetsProcessed MonthState = "sheets_processed"
	StateWorkbookClosed  MonthState = "workbook_closed"
	StateSkipped         MonthState = "skipped"
	StateFailed          MonthState = "failed"
)

// Terminal reports whether no further transition follows s.
func (s MonthState) Terminal() bool {
	return s == StateWorkbookClosed || s == StateSkipped || s == StateFailed
}

// Counts are the row counters reported at every level.
//
// Processed rows produced at least one record. Errored rows were rejected
// (route, date, airline or a recovered panic). Skipped rows were never
// examined because their sheet could not be classified. Blank rows are not
// counted.
type Counts struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

func (c *Counts) add(o Counts) {
	c.Processed += o.Processed
	c.Skipped += o.Skipped
	c.Errored += o.Errored
}

// SheetStats describes one worksheet.
type SheetStats struct {
	Name    string `json:"name"`
	Layout  int    `json:"layout"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Counts
	Records     int                  `json:"records"`
	FieldIssues int                  `json:"fieldIssues"`
	ErrorCounts map[string]int       `json:"errorCounts,omitempty"`
	Errors      []ingesterrors.Entry `json:"errors,omitempty"`
}

// MonthStats describes one month folder.
type MonthStats struct {
	Year     int        `json:"year"`
	Month    int        `json:"month"`
	Folder   string     `json:"folder"`
	Workbook string     `json:"workbook,omitempty"`
	State    MonthState `json:"state"`
	Reason   string     `json:"reason,omitempty"`
	// Cached is never serialized: a restored month encodes exactly like the
	// run that filled the cache.
	Cached   bool       `json:"-"`
	Counts
	Records     int          `json:"records"`
	Sheets      []SheetStats `json:"sheets,omitempty"`
	DaysCovered []int        `json:"daysCovered,omitempty"`
	DaysMissing []int        `json:"daysMissing,omitempty"`
}

// MonthResult is the output of one month worker. It is also the checkpoint
// payload.
type MonthResult struct {
	Stats         MonthStats           `json:"stats"`
	Records       []model.FlightRecord `json:"records"`
	SourceModTime time.Time            `json:"sourceModTime"`
	Duration      time.Duration        `json:"-"`

	// Rejected holds every row error of the month, unbounded by MaxErrors.
	// It is filled only when checkpointing so a restored month can replay
	// its rows into the quarantine.
	Rejected []ingesterrors.Entry `json:"rejected,omitempty"`
}

// Stats aggregates a whole run.
type Stats struct {
	Counts
	Months         []MonthStats   `json:"months"`
	SkippedMonths  int            `json:"skippedMonths"`
	FailedMonths   int            `json:"failedMonths"`
	FallbackSheets []string       `json:"fallbackSheets,omitempty"`
	UnknownSheets  []string       `json:"unknownSheets,omitempty"`
	ErrorCounts    map[string]int `json:"errorCounts"`
}

func (s *Stats) add(m MonthStats) {
	s.Counts.add(m.Counts)
	s.Months = append(s.Months, m)

	switch m.State {
	case StateSkipped:
		s.SkippedMonths++
	case StateFailed:
		s.FailedMonths++
	}

	if s.ErrorCounts == nil {
		s.ErrorCounts = make(map[string]int)
	}
	for _, sh := range m.Sheets {
		for k, n := range sh.ErrorCounts {
			s.ErrorCounts[k] += n
		}
		name := sheetRef(m, sh.Name)
		switch sh.Outcome {
		case outcomeFallback:
			s.FallbackSheets = append(s.FallbackSheets, name)
		case outcomeUnknown:
			s.UnknownSheets = append(s.UnknownSheets, name)
		}
	}
}

func sheetRef(m MonthStats, sheet string) string {
	return fmt.Sprintf("%d/%s/%s", m.Year, m.Folder, sheet)
}

// Result is the outcome of a pipeline run.
type Result struct {
	RunID   string
	Records []model.FlightRecord
	Stats   Stats

	// SourceModTime is the latest modification time of the workbooks read.
	// It is the reproducible extraction timestamp.
	SourceModTime time.Time
	Duration      time.Duration
}

// TotalCount returns the number of records.
func (r *Result) TotalCount() int {
	return len(r.Records)
}
