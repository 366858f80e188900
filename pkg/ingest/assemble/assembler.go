// Package assemble turns extracted row fields into canonical flight records.
package assemble

import (
	"errors"
	"strings"
	"time"

	"github.com/tzl-ops/flightarchive/internal/model"
	ingesterrors "github.com/tzl-ops/flightarchive/pkg/ingest/errors"
	"github.com/tzl-ops/flightarchive/pkg/ingest/extract"
	"github.com/tzl-ops/flightarchive/pkg/parser"
)

// DefaultHomeAirport is the airport the archive belongs to.
const DefaultHomeAirport = "TZL"

// Rejection causes.
var (
	ErrNoDate         = errors.New("assemble: date not resolved")
	ErrMissingAirline = errors.New("assemble: airline is blank")
)

// RoundTripPolicy decides how three-token routes through the home airport
// are turned into records.
type RoundTripPolicy uint8

const (
	// RoundTripOutbound emits one record per row for the outbound leg.
	RoundTripOutbound RoundTripPolicy = iota
	// RoundTripSplit emits one record per leg: the leg leaving the home
	// airport carries departure-side data, the leg arriving there carries
	// arrival-side data.
	RoundTripSplit
)

func (p RoundTripPolicy) String() string {
	if p == RoundTripSplit {
		return "split"
	}
	return "outbound"
}

// ParseRoundTripPolicy parses a policy name, defaulting to outbound.
func ParseRoundTripPolicy(s string) RoundTripPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "split") {
		return RoundTripSplit
	}
	return RoundTripOutbound
}

// Config configures an Assembler.
type Config struct {
	HomeAirport string
	RoundTrip   RoundTripPolicy
}

// Assembler builds flight records. It holds no per-row state and is safe for
// concurrent use.
type Assembler struct {
	home      string
	roundTrip RoundTripPolicy
}

// New creates an assembler.
func New(cfg Config) *Assembler {
	home := strings.ToUpper(strings.TrimSpace(cfg.HomeAirport))
	if home == "" {
		home = DefaultHomeAirport
	}
	return &Assembler{home: home, roundTrip: cfg.RoundTrip}
}

// Input is everything known about one row.
type Input struct {
	Fields     extract.RawFields
	Date       time.Time
	Provenance model.Provenance
}

// Assemble validates a row and builds its records. A rejected row returns a
// *ingesterrors.RowError describing why.
func (a *Assembler) Assemble(in Input) ([]model.FlightRecord, error) {
	f := in.Fields

	if in.Date.IsZero() {
		return nil, a.reject(in, ingesterrors.KindDateReconciliation, "", f.Date.Trimmed(), ErrNoDate)
	}

	airline := NormalizeAirline(f.Airline)
	if parser.IsSentinel(airline) {
		return nil, a.reject(in, ingesterrors.KindMissingAirline, "airline", f.Airline, ErrMissingAirline)
	}

	route, err := parser.ParseRoute(f.Route)
	if err != nil {
		return nil, a.reject(in, ingesterrors.KindRouteParse, "route", f.Route, err)
	}

	base := model.FlightRecord{
		Date:             model.DateOf(in.Date),
		Airline:          airline,
		Route:            f.Route,
		DepartureAirport: route.Departure,
		ArrivalAirport:   route.Arrival,
		AircraftModel:    f.Aircraft,
		Registration:     f.Registration,
		OperationType:    NormalizeOperationType(f.OperationType),

		AvailableSeats: f.AvailableSeats,
		MTOW:           f.MTOW,

		ArrivalFlightNumber:   f.ArrivalFlight,
		DepartureFlightNumber: f.DepartureFlight,

		ScheduledArrivalTime:   f.ScheduledArrival,
		ActualArrivalTime:      f.ActualArrival,
		ScheduledDepartureTime: f.ScheduledDeparture,
		ActualDepartureTime:    f.ActualDeparture,

		ArrivalPassengers:   f.ArrivalPassengers,
		ArrivalInfants:      f.ArrivalInfants,
		DeparturePassengers: f.DeparturePassengers,
		DepartureInfants:    f.DepartureInfants,

		ArrivalBaggage:   f.ArrivalBaggage,
		DepartureBaggage: f.DepartureBaggage,
		ArrivalCargo:     f.ArrivalCargo,
		DepartureCargo:   f.DepartureCargo,
		ArrivalMail:      f.ArrivalMail,
		DepartureMail:    f.DepartureMail,

		SourceFile: in.Provenance.SourceFile,
		Sheet:      in.Provenance.Sheet,
		SourceRow:  in.Provenance.Row,
		Layout:     in.Provenance.Layout,
	}

	if a.roundTrip == RoundTripSplit {
		if legs, ok := a.homeLegs(f.Route); ok {
			return a.split(base, legs), nil
		}
	}
	return []model.FlightRecord{base}, nil
}

// homeLegs returns the two legs of a three-token route when each leg either
// leaves or reaches the home airport.
func (a *Assembler) homeLegs(raw string) ([]model.RouteEndpoints, bool) {
	if len(parser.RouteTokens(raw)) != 3 {
		return nil, false
	}
	legs := parser.Legs(raw)
	for _, l := range legs {
		if l.Departure != a.home && l.Arrival != a.home {
			return nil, false
		}
	}
	return legs, true
}

func (a *Assembler) split(base model.FlightRecord, legs []model.RouteEndpoints) []model.FlightRecord {
	out := make([]model.FlightRecord, 0, len(legs))
	for _, leg := range legs {
		r := base
		r.DepartureAirport = leg.Departure
		r.ArrivalAirport = leg.Arrival
		if leg.Arrival == a.home {
			clearDepartureSide(&r)
		} else {
			clearArrivalSide(&r)
		}
		out = append(out, r)
	}
	return out
}

func clearArrivalSide(r *model.FlightRecord) {
	r.ArrivalFlightNumber = nil
	r.ScheduledArrivalTime = nil
	r.ActualArrivalTime = nil
	r.ArrivalPassengers = nil
	r.ArrivalInfants = nil
	r.ArrivalBaggage = nil
	r.ArrivalCargo = nil
	r.ArrivalMail = nil
}

func clearDepartureSide(r *model.FlightRecord) {
	r.DepartureFlightNumber = nil
	r.ScheduledDepartureTime = nil
	r.ActualDepartureTime = nil
	r.DeparturePassengers = nil
	r.DepartureInfants = nil
	r.DepartureBaggage = nil
	r.DepartureCargo = nil
	r.DepartureMail = nil
}

func (a *Assembler) reject(in Input, kind ingesterrors.Kind, column, value string, err error) *ingesterrors.RowError {
	return &ingesterrors.RowError{
		Kind:   kind,
		File:   in.Provenance.SourceFile,
		Sheet:  in.Provenance.Sheet,
		Row:    in.Provenance.Row,
		Column: column,
		Value:  value,
		Err:    err,
	}
}

// NormalizeAirline upper-cases an airline name and collapses whitespace.
func NormalizeAirline(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// NormalizeOperationType upper-cases the operation type, "N/A" when blank.
func NormalizeOperationType(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "N/A"
	}
	return s
}
