// Package inspect reports on workbooks and extracted flight records: how
// each sheet classifies, and how complete the resulting records are.
package inspect

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tzl-ops/flightarchive/internal/model"
	"github.com/tzl-ops/flightarchive/pkg/index"
)

// QualityReport contains data quality metrics of a set of flight records.
type QualityReport struct {
	// Basic counts
	TotalFlights int `json:"total_flights"`
	Airlines     int `json:"airlines"`
	Airports     int `json:"airports"`

	// Date range
	FirstDate model.Date `json:"first_date"`
	LastDate  model.Date `json:"last_date"`

	// Completeness metrics (% non-null)
	Completeness CompletenessMetrics `json:"completeness"`

	DuplicateFlights int `json:"duplicate_flights"`

	TopAirlines   []index.ValueCount `json:"top_airlines"`
	TopDepartures []index.ValueCount `json:"top_departures"`
	TopArrivals   []index.ValueCount `json:"top_arrivals"`

	Issues   []QualityIssue `json:"issues"`
	Warnings []string       `json:"warnings"`
}

// CompletenessMetrics tracks unreported values.
type CompletenessMetrics struct {
	PassengersComplete   float64 `json:"passengers_complete_pct"`
	AircraftComplete     float64 `json:"aircraft_complete_pct"`
	RegistrationComplete float64 `json:"registration_complete_pct"`
	FlightNumberComplete float64 `json:"flight_number_complete_pct"`
	TimesComplete        float64 `json:"times_complete_pct"`

	MissingPassengers    int `json:"missing_passengers"`
	MissingAircraft      int `json:"missing_aircraft"`
	MissingRegistration  int `json:"missing_registration"`
	MissingFlightNumbers int `json:"missing_flight_numbers"`
	MissingTimes         int `json:"missing_times"`
}

// QualityIssue describes a specific data quality problem.
type QualityIssue struct {
	Severity     string `json:"severity"` // "error", "warning", "info"
	Category     string `json:"category"` // "completeness", "consistency"
	Description  string `json:"description"`
	AffectedRows int    `json:"affected_rows"`
}

// QualityAnalyzer accumulates flight records for a QualityReport.
// It is safe for concurrent use.
type QualityAnalyzer struct {
	mu sync.Mutex

	idx   *index.RecordIndex
	total int

	missingPassengers   int
	missingAircraft     int
	missingRegistration int
	missingFlightNumber int
	missingTimes        int

	first, last model.Date

	// flight identity -> occurrences
	seen       map[string]int
	duplicates int
}

// NewQualityAnalyzer creates a new analyzer.
func NewQualityAnalyzer() *QualityAnalyzer {
	return &QualityAnalyzer{
		idx:  index.NewRecordIndex(),
		seen: make(map[string]int),
	}
}

// Add analyzes records.
func (a *QualityAnalyzer) Add(records []model.FlightRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.idx.Add(records)
	for i := range records {
		a.add(&records[i])
	}
}

func (a *QualityAnalyzer) add(r *model.FlightRecord) {
	a.total++

	if r.ArrivalPassengers == nil && r.DeparturePassengers == nil {
		a.missingPassengers++
	}
	if r.AircraftModel == "" {
		a.missingAircraft++
	}
	if r.Registration == "" {
		a.missingRegistration++
	}
	if r.ArrivalFlightNumber == nil && r.DepartureFlightNumber == nil {
		a.missingFlightNumber++
	}
	if r.ActualArrivalTime == nil && r.ActualDepartureTime == nil &&
		r.ScheduledArrivalTime == nil && r.ScheduledDepartureTime == nil {
		a.missingTimes++
	}

	if a.first.IsZero() || r.Date.Time().Before(a.first.Time()) {
		a.first = r.Date
	}
	if r.Date.Time().After(a.last.Time()) {
		a.last = r.Date
	}

	key := flightKey(r)
	if a.seen[key] > 0 {
		a.duplicates++
	}
	a.seen[key]++
}

// flightKey identifies a movement independent of where it was read.
func flightKey(r *model.FlightRecord) string {
	return strings.Join([]string{
		r.Date.String(), r.Airline, r.Route, r.Registration,
		deref(r.ArrivalFlightNumber), deref(r.DepartureFlightNumber),
	}, "|")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Report generates the quality report.
func (a *QualityAnalyzer) Report() *QualityReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	airports := make(map[string]struct{})
	for _, col := range []string{index.ColumnDeparture, index.ColumnArrival} {
		for _, vc := range a.idx.Counts(col) {
			airports[vc.Value] = struct{}{}
		}
	}

	report := &QualityReport{
		TotalFlights:     a.total,
		Airlines:         a.idx.Cardinality(index.ColumnAirline),
		Airports:         len(airports),
		FirstDate:        a.first,
		LastDate:         a.last,
		DuplicateFlights: a.duplicates,
		TopAirlines:      top(a.idx.Counts(index.ColumnAirline), 10),
		TopDepartures:    top(a.idx.Counts(index.ColumnDeparture), 10),
		TopArrivals:      top(a.idx.Counts(index.ColumnArrival), 10),
	}

	if a.total > 0 {
		pct := func(missing int) float64 {
			return 100.0 * float64(a.total-missing) / float64(a.total)
		}
		report.Completeness = CompletenessMetrics{
			PassengersComplete:   pct(a.missingPassengers),
			AircraftComplete:     pct(a.missingAircraft),
			RegistrationComplete: pct(a.missingRegistration),
			FlightNumberComplete: pct(a.missingFlightNumber),
			TimesComplete:        pct(a.missingTimes),
			MissingPassengers:    a.missingPassengers,
			MissingAircraft:      a.missingAircraft,
			MissingRegistration:  a.missingRegistration,
			MissingFlightNumbers: a.missingFlightNumber,
			MissingTimes:         a.missingTimes,
		}
	}

	report.Issues = a.detectIssues()
	report.Warnings = a.generateWarnings()
	return report
}

func top(counts []index.ValueCount, n int) []index.ValueCount {
	if len(counts) > n {
		return counts[:n]
	}
	return counts
}

// detectIssues identifies quality problems.
func (a *QualityAnalyzer) detectIssues() []QualityIssue {
	var issues []QualityIssue

	if a.missingPassengers > 0 {
		issues = append(issues, QualityIssue{
			Severity:     "warning",
			Category:     "completeness",
			Description:  "Flights without passenger counts on either side",
			AffectedRows: a.missingPassengers,
		})
	}
	if a.duplicates > 0 {
		issues = append(issues, QualityIssue{
			Severity:     "warning",
			Category:     "consistency",
			Description:  "Duplicate flights (same date, airline, route, registration and flight numbers)",
			AffectedRows: a.duplicates,
		})
	}
	if a.missingFlightNumber > 0 {
		issues = append(issues, QualityIssue{
			Severity:     "info",
			Category:     "completeness",
			Description:  "Flights without flight numbers",
			AffectedRows: a.missingFlightNumber,
		})
	}
	return issues
}

// generateWarnings creates warning messages.
func (a *QualityAnalyzer) generateWarnings() []string {
	var warnings []string
	if a.total == 0 {
		return append(warnings, "No flights extracted")
	}

	if rate := float64(a.missingRegistration) / float64(a.total); rate > 0.5 {
		warnings = append(warnings, fmt.Sprintf("%.1f%% of flights have no registration", rate*100))
	}
	if rate := float64(a.missingTimes) / float64(a.total); rate > 0.5 {
		warnings = append(warnings, fmt.Sprintf("%.1f%% of flights have no times", rate*100))
	}
	return warnings
}

// ToJSON serializes the report to JSON.
func (r *QualityReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// String returns a human-readable summary.
func (r *QualityReport) String() string {
	return fmt.Sprintf(`Flight Quality Report
=====================
Flights:  %d
Airlines: %d
Airports: %d
Dates:    %s to %s

Completeness:
  Passengers:     %.1f%% (%d missing)
  Aircraft:       %.1f%% (%d missing)
  Registration:   %.1f%% (%d missing)
  Flight numbers: %.1f%% (%d missing)
  Times:          %.1f%% (%d missing)

Duplicate flights: %d
Issues Found: %d
Warnings: %d
`,
		r.TotalFlights, r.Airlines, r.Airports,
		r.FirstDate, r.LastDate,
		r.Completeness.PassengersComplete, r.Completeness.MissingPassengers,
		r.Completeness.AircraftComplete, r.Completeness.MissingAircraft,
		r.Completeness.RegistrationComplete, r.Completeness.MissingRegistration,
		r.Completeness.FlightNumberComplete, r.Completeness.MissingFlightNumbers,
		r.Completeness.TimesComplete, r.Completeness.MissingTimes,
		r.DuplicateFlights,
		len(r.Issues), len(r.Warnings),
	)
}
