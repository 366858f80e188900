package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date and reports whether it names a real calendar day.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if year < 1 || month < time.January || month > time.December || day < 1 {
		return Date{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes the date as an ISO calendar date string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO calendar date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("model: invalid date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

// PassengerCount is an adults/infants pair. A nil *PassengerCount means the
// count was not reported; a zero value means zero passengers.
type PassengerCount struct {
	Adults  int `json:"adults"`
	Infants int `json:"infants"`
}

// Total returns adults plus infants.
func (p PassengerCount) Total() int {
	return p.Adults + p.Infants
}

// String renders the count in the composite "adults+infants" form.
func (p PassengerCount) String() string {
	return fmt.Sprintf("%d+%d", p.Adults, p.Infants)
}

// RouteEndpoints are the departure and arrival airport codes of one leg.
type RouteEndpoints struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
}

// String renders the endpoints as "DEP-ARR".
func (r RouteEndpoints) String() string {
	return r.Departure + "-" + r.Arrival
}

// Provenance records where a flight record came from.
type Provenance struct {
	SourceFile string
	Sheet      string
	Row        int
	Layout     int
}

// FlightRecord is the canonical output unit: one flight movement.
// Pointer fields are nil when the source did not report a value.
// Records are built once by the assembler and never modified afterwards.
type FlightRecord struct {
	Date             Date   `json:"date"`
	Airline          string `json:"airline"`
	Route            string `json:"route"`
	DepartureAirport string `json:"departureAirport"`
	ArrivalAirport   string `json:"arrivalAirport"`
	AircraftModel    string `json:"aircraftModel"`
	Registration     string `json:"registration"`
	OperationType    string `json:"operationType"`

	AvailableSeats        *int    `json:"availableSeats"`
	MTOW                  *int    `json:"mtow"`
	ArrivalFlightNumber   *string `json:"arrivalFlightNumber"`
	DepartureFlightNumber *string `json:"departureFlightNumber"`

	ScheduledArrivalTime   *string `json:"scheduledArrivalTime"`
	ActualArrivalTime      *string `json:"actualArrivalTime"`
	ScheduledDepartureTime *string `json:"scheduledDepartureTime"`
	ActualDepartureTime    *string `json:"actualDepartureTime"`

	ArrivalPassengers   *int `json:"arrivalPassengers"`
	ArrivalInfants      *int `json:"arrivalInfants"`
	DeparturePassengers *int `json:"departurePassengers"`
	DepartureInfants    *int `json:"departureInfants"`

	ArrivalBaggage   *int `json:"arrivalBaggage"`
	DepartureBaggage *int `json:"departureBaggage"`
	ArrivalCargo     *int `json:"arrivalCargo"`
	DepartureCargo   *int `json:"departureCargo"`
	ArrivalMail      *int `json:"arrivalMail"`
	DepartureMail    *int `json:"departureMail"`

	SourceFile string `json:"sourceFile"`
	Sheet      string `json:"sheet"`
	SourceRow  int    `json:"sourceRow"`
	Layout     int    `json:"layout"`
}

// Provenance returns the record's source location.
func (f *FlightRecord) Provenance() Provenance {
	return Provenance{SourceFile: f.SourceFile, Sheet: f.Sheet, Row: f.SourceRow, Layout: f.Layout}
}
