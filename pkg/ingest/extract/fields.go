// Package extract pulls typed field values out of a worksheet row using a
// layout descriptor.
package extract

import (
	"fmt"
	"strings"

	"github.com/tzl-ops/flightarchive/internal/model"
	"github.com/tzl-ops/flightarchive/pkg/ingest/detect"
	"github.com/tzl-ops/flightarchive/pkg/parser"
)

// RawFields holds the values of one row before record assembly.
// Pointer fields are nil when the column is absent, blank or a sentinel,
// or when coercion failed (see FieldIssue).
type RawFields struct {
	Date          model.Cell
	Airline       string
	Route         string
	Aircraft      string
	Registration  string
	OperationType string

	AvailableSeats *int
	MTOW           *int

	ArrivalFlight   *string
	DepartureFlight *string

	ScheduledArrival   *string
	ActualArrival      *string
	ScheduledDeparture *string
	ActualDeparture    *string

	ArrivalPassengers   *int
	ArrivalInfants      *int
	DeparturePassengers *int
	DepartureInfants    *int

	ArrivalBaggage   *int
	DepartureBaggage *int
	ArrivalCargo     *int
	DepartureCargo   *int
	ArrivalMail      *int
	DepartureMail    *int
}

// FieldIssue records a value that could not be coerced. The row survives;
// the field is left null.
type FieldIssue struct {
	Field  detect.Field
	Column int
	Value  string
	Err    error
}

func (i FieldIssue) Error() string {
	return fmt.Sprintf("column %d (%s) value %q: %v", i.Column, i.Field, i.Value, i.Err)
}

func (i FieldIssue) Unwrap() error { return i.Err }

// Fields extracts every field of d from row. Columns that are absent or past
// the end of the row yield null values; it never panics.
func Fields(row model.Row, d detect.Descriptor) (RawFields, []FieldIssue) {
	x := extractor{row: row, d: d}

	f := RawFields{
		Date:          x.cell(detect.FieldDate),
		Airline:       x.text(detect.FieldAirline),
		Route:         x.route(),
		Aircraft:      x.text(detect.FieldAircraft),
		Registration:  x.text(detect.FieldRegistration),
		OperationType: x.text(detect.FieldOperationType),

		AvailableSeats: x.number(detect.FieldAvailableSeats),
		MTOW:           x.number(detect.FieldMTOW),

		ArrivalFlight:   x.optText(detect.FieldArrivalFlight),
		DepartureFlight: x.optText(detect.FieldDepartureFlight),

		ScheduledArrival:   x.optText(detect.FieldScheduledArrival),
		ActualArrival:      x.optText(detect.FieldActualArrival),
		ScheduledDeparture: x.optText(detect.FieldScheduledDeparture),
		ActualDeparture:    x.optText(detect.FieldActualDeparture),

		ArrivalBaggage:   x.number(detect.FieldArrivalBaggage),
		DepartureBaggage: x.number(detect.FieldDepartureBaggage),
		ArrivalCargo:     x.number(detect.FieldArrivalCargo),
		DepartureCargo:   x.number(detect.FieldDepartureCargo),
		ArrivalMail:      x.number(detect.FieldArrivalMail),
		DepartureMail:    x.number(detect.FieldDepartureMail),
	}

	if d.CombinedPassengers {
		f.ArrivalPassengers, f.ArrivalInfants = x.composite(detect.FieldArrivalPax)
		f.DeparturePassengers, f.DepartureInfants = x.composite(detect.FieldDeparturePax)
	} else {
		f.ArrivalPassengers = x.number(detect.FieldArrivalPax)
		f.ArrivalInfants = x.number(detect.FieldArrivalInfants)
		f.DeparturePassengers = x.number(detect.FieldDeparturePax)
		f.DepartureInfants = x.number(detect.FieldDepartureInfants)
	}

	return f, x.issues
}

type extractor struct {
	row    model.Row
	d      detect.Descriptor
	issues []FieldIssue
}

func (x *extractor) cell(f detect.Field) model.Cell {
	c, _ := x.row.At(x.d.Column(f))
	return c
}

func (x *extractor) text(f detect.Field) string {
	return x.cell(f).Trimmed()
}

func (x *extractor) optText(f detect.Field) *string {
	return parser.Text(x.cell(f))
}

func (x *extractor) number(f detect.Field) *int {
	c := x.cell(f)
	v, err := parser.Int(c)
	if err != nil {
		x.issue(f, c, err)
		return nil
	}
	return v
}

func (x *extractor) composite(f detect.Field) (adults, infants *int) {
	c := x.cell(f)
	p, err := parser.ParsePassengers(c)
	if err != nil {
		x.issue(f, c, err)
		return nil, nil
	}
	if p == nil {
		return nil, nil
	}
	a, i := p.Adults, p.Infants
	return &a, &i
}

// route returns the raw route string. Layout 5 splits the route into
// "arrival from" and "departure to" columns which are joined with '-'.
func (x *extractor) route() string {
	if x.d.Columns.Has(detect.FieldRoute) {
		return x.text(detect.FieldRoute)
	}

	var parts []string
	for _, f := range []detect.Field{detect.FieldRouteFrom, detect.FieldRouteTo} {
		if s := x.text(f); !parser.IsSentinel(s) {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

func (x *extractor) issue(f detect.Field, c model.Cell, err error) {
	x.issues = append(x.issues, FieldIssue{
		Field:  f,
		Column: x.d.Column(f),
		Value:  c.Trimmed(),
		Err:    err,
	})
}
