package writer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// csvRow is the flat CSV shape of a FlightRecord. Nil pointers encode as
// empty cells.
type csvRow struct {
	Date             string `csv:"date"`
	Airline          string `csv:"airline"`
	Route            string `csv:"route"`
	DepartureAirport string `csv:"departure_airport"`
	ArrivalAirport   string `csv:"arrival_airport"`
	AircraftModel    string `csv:"aircraft_model"`
	Registration     string `csv:"registration"`
	OperationType    string `csv:"operation_type"`

	AvailableSeats        *int    `csv:"available_seats"`
	MTOW                  *int    `csv:"mtow"`
	ArrivalFlightNumber   *string `csv:"arrival_flight_number"`
	DepartureFlightNumber *string `csv:"departure_flight_number"`

	ScheduledArrivalTime   *string `csv:"scheduled_arrival_time"`
	ActualArrivalTime      *string `csv:"actual_arrival_time"`
	ScheduledDepartureTime *string `csv:"scheduled_departure_time"`
	ActualDepartureTime    *string `csv:"actual_departure_time"`

	ArrivalPassengers   *int `csv:"arrival_passengers"`
	ArrivalInfants      *int `csv:"arrival_infants"`
	DeparturePassengers *int `csv:"departure_passengers"`
	DepartureInfants    *int `csv:"departure_infants"`
	ArrivalBaggage      *int `csv:"arrival_baggage"`
	DepartureBaggage    *int `csv:"departure_baggage"`
	ArrivalCargo        *int `csv:"arrival_cargo"`
	DepartureCargo      *int `csv:"departure_cargo"`
	ArrivalMail         *int `csv:"arrival_mail"`
	DepartureMail       *int `csv:"departure_mail"`

	SourceFile string `csv:"source_file"`
	Sheet      string `csv:"sheet"`
	SourceRow  int    `csv:"source_row"`
	Layout     int    `csv:"layout"`
}

func toCSVRow(r *model.FlightRecord) csvRow {
	return csvRow{
		Date:                   r.Date.String(),
		Airline:                r.Airline,
		Route:                  r.Route,
		DepartureAirport:       r.DepartureAirport,
		ArrivalAirport:         r.ArrivalAirport,
		AircraftModel:          r.AircraftModel,
		Registration:           r.Registration,
		OperationType:          r.OperationType,
		AvailableSeats:         r.AvailableSeats,
		MTOW:                   r.MTOW,
		ArrivalFlightNumber:    r.ArrivalFlightNumber,
		DepartureFlightNumber:  r.DepartureFlightNumber,
		ScheduledArrivalTime:   r.ScheduledArrivalTime,
		ActualArrivalTime:      r.ActualArrivalTime,
		ScheduledDepartureTime: r.ScheduledDepartureTime,
		ActualDepartureTime:    r.ActualDepartureTime,
		ArrivalPassengers:      r.ArrivalPassengers,
		ArrivalInfants:         r.ArrivalInfants,
		DeparturePassengers:    r.DeparturePassengers,
		DepartureInfants:       r.DepartureInfants,
		ArrivalBaggage:         r.ArrivalBaggage,
		DepartureBaggage:       r.DepartureBaggage,
		ArrivalCargo:           r.ArrivalCargo,
		DepartureCargo:         r.DepartureCargo,
		ArrivalMail:            r.ArrivalMail,
		DepartureMail:          r.DepartureMail,
		SourceFile:             r.SourceFile,
		Sheet:                  r.Sheet,
		SourceRow:              r.SourceRow,
		Layout:                 r.Layout,
	}
}

// CSVWriter writes flight records as CSV with a header line.
type CSVWriter struct {
	cw   *csv.Writer
	enc  *csvutil.Encoder
	rows int
}

// NewCSVWriter creates a CSV writer on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	cw := csv.NewWriter(w)
	return &CSVWriter{cw: cw, enc: csvutil.NewEncoder(cw)}
}

// Write implements the Writer interface.
func (w *CSVWriter) Write(ctx context.Context, records []model.FlightRecord) error {
	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.enc.Encode(toCSVRow(&records[i])); err != nil {
			return fmt.Errorf("encode row %d: %w", w.rows+1, err)
		}
		w.rows++
	}
	return nil
}

// Close flushes the CSV. An export without records still gets its header.
func (w *CSVWriter) Close() error {
	if w.rows == 0 {
		if err := w.enc.EncodeHeader(csvRow{}); err != nil {
			return fmt.Errorf("encode header: %w", err)
		}
	}
	w.cw.Flush()
	return w.cw.Error()
}
