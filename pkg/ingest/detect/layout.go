package detect

import "fmt"

// NoColumn marks a field that a layout does not carry.
const NoColumn = -1

// Layout identifies one of the historical worksheet column layouts.
type Layout uint8

const (
	LayoutUnknown Layout = iota
	// Layout1: no ICAO column, composite passengers at 13/14.
	Layout1
	// Layout2: ICAO present, composite passengers starting at column 15.
	Layout2
	// Layout3: ICAO present, adults and infants in separate columns.
	Layout3
	// Layout4: duplicated date/company export block, split passengers.
	Layout4
	// Layout5: per-row date column, route split into "from" and "to".
	Layout5
)

// Layouts lists every known layout in classification priority order.
var Layouts = []Layout{Layout5, Layout1, Layout4, Layout2, Layout3}

// String returns the layout name.
func (l Layout) String() string {
	if l >= Layout1 && l <= Layout5 {
		return fmt.Sprintf("layout-%d", int(l))
	}
	return "unknown"
}

// ID returns the numeric layout id written to flight records.
func (l Layout) ID() int {
	if l >= Layout1 && l <= Layout5 {
		return int(l)
	}
	return 0
}

// ParseLayout parses a layout id ("3") or name ("layout-3").
func ParseLayout(s string) Layout {
	for _, l := range Layouts {
		if s == l.String() || s == fmt.Sprint(int(l)) {
			return l
		}
	}
	return LayoutUnknown
}

// Field is a logical column of a flight row.
type Field uint8

const (
	FieldDate Field = iota
	FieldAirline
	FieldAircraft
	FieldAvailableSeats
	FieldRegistration
	FieldOperationType
	FieldMTOW
	FieldArrivalFlight
	FieldDepartureFlight
	FieldScheduledArrival
	FieldActualArrival
	FieldScheduledDeparture
	FieldActualDeparture
	FieldArrivalPax
	FieldDeparturePax
	FieldArrivalInfants
	FieldDepartureInfants
	FieldArrivalBaggage
	FieldDepartureBaggage
	FieldArrivalCargo
	FieldDepartureCargo
	FieldArrivalMail
	FieldDepartureMail
	// FieldRoute is the single "ruta" column of layouts 1 to 4.
	FieldRoute
	// FieldRouteFrom and FieldRouteTo are the split route columns of layout 5.
	FieldRouteFrom
	FieldRouteTo

	numFields
)

var fieldNames = [numFields]string{
	"date", "airline", "aircraft", "availableSeats", "registration",
	"operationType", "mtow", "arrivalFlightNumber", "departureFlightNumber",
	"scheduledArrivalTime", "actualArrivalTime", "scheduledDepartureTime",
	"actualDepartureTime", "arrivalPassengers", "departurePassengers",
	"arrivalInfants", "departureInfants", "arrivalBaggage", "departureBaggage",
	"arrivalCargo", "departureCargo", "arrivalMail", "departureMail",
	"route", "routeFrom", "routeTo",
}

func (f Field) String() string {
	if f < numFields {
		return fieldNames[f]
	}
	return "unknown"
}

// ColumnMap maps every logical field to a 0-based column index or NoColumn.
type ColumnMap [numFields]int

// emptyColumnMap returns a map with every field absent.
func emptyColumnMap() ColumnMap {
	var m ColumnMap
	for i := range m {
		m[i] = NoColumn
	}
	return m
}

// Get returns the column index for f, or NoColumn.
func (m ColumnMap) Get(f Field) int {
	if f >= numFields {
		return NoColumn
	}
	return m[f]
}

// Has reports whether f resolves to a column.
func (m ColumnMap) Has(f Field) bool {
	return m.Get(f) != NoColumn
}

// Resolved returns the field names that map to a column.
func (m ColumnMap) Resolved() map[string]int {
	out := make(map[string]int)
	for f, col := range m {
		if col != NoColumn {
			out[Field(f).String()] = col
		}
	}
	return out
}

// Descriptor describes how to read rows of one worksheet.
// Descriptors are built per sheet and never shared between sheets.
type Descriptor struct {
	Layout             Layout
	Columns            ColumnMap
	CombinedPassengers bool
	// DateColumn reports whether rows carry their own date in FieldDate.
	DateColumn bool
}

// Column is shorthand for d.Columns.Get(f).
func (d Descriptor) Column(f Field) int {
	return d.Columns.Get(f)
}

// requiredFields must resolve for every layout.
var requiredFields = []Field{
	FieldAirline, FieldAircraft, FieldRegistration, FieldOperationType,
	FieldArrivalPax, FieldDeparturePax,
}

// Validate checks the descriptor invariants: every required field resolves,
// at least one route column resolves, and split-passenger layouts carry
// infant columns. It returns the first missing field.
func (d Descriptor) Validate() error {
	for _, f := range requiredFields {
		if !d.Columns.Has(f) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, f)
		}
	}
	if !d.Columns.Has(FieldRoute) && !d.Columns.Has(FieldRouteFrom) && !d.Columns.Has(FieldRouteTo) {
		return fmt.Errorf("%w: %s", ErrMissingColumn, FieldRoute)
	}
	if !d.CombinedPassengers {
		if !d.Columns.Has(FieldArrivalInfants) || !d.Columns.Has(FieldDepartureInfants) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, FieldArrivalInfants)
		}
	}
	return nil
}

// Catalog holds the static column table of every layout.
type Catalog struct {
	layouts map[Layout]Descriptor
}

// NewCatalog builds the catalog of historical layouts. Route columns of
// layouts 1 to 4 are located per sheet by the classifier and are left unset.
func NewCatalog() *Catalog {
	c := &Catalog{layouts: make(map[Layout]Descriptor, len(Layouts))}
	for _, l := range Layouts {
		c.layouts[l] = buildLayout(l)
	}
	return c
}

// Lookup returns a copy of the descriptor template for l.
func (c *Catalog) Lookup(l Layout) (Descriptor, bool) {
	d, ok := c.layouts[l]
	return d, ok
}

func buildLayout(l Layout) Descriptor {
	d := Descriptor{Layout: l}
	var cols map[Field]int

	switch l {
	case Layout1:
		cols = map[Field]int{
			FieldAirline: 1, FieldAircraft: 3, FieldRegistration: 4,
			FieldOperationType: 5, FieldMTOW: 6,
			FieldArrivalFlight: 7, FieldDepartureFlight: 8,
			FieldScheduledArrival: 9, FieldActualArrival: 10,
			FieldScheduledDeparture: 11, FieldActualDeparture: 12,
			FieldArrivalPax: 13, FieldDeparturePax: 14,
			FieldArrivalBaggage: 15, FieldDepartureBaggage: 16,
			FieldArrivalCargo: 17, FieldDepartureCargo: 18,
			FieldArrivalMail: 19, FieldDepartureMail: 20,
		}
		d.CombinedPassengers = true
	case Layout2:
		cols = map[Field]int{
			FieldAirline: 1, FieldAircraft: 4, FieldAvailableSeats: 5,
			FieldRegistration: 6, FieldOperationType: 7, FieldMTOW: 8,
			FieldArrivalFlight: 9, FieldDepartureFlight: 10,
			FieldScheduledArrival: 11, FieldActualArrival: 12,
			FieldScheduledDeparture: 13, FieldActualDeparture: 14,
			FieldArrivalPax: 15, FieldDeparturePax: 16,
			FieldArrivalBaggage: 17, FieldDepartureBaggage: 18,
			FieldArrivalCargo: 19, FieldDepartureCargo: 20,
			FieldArrivalMail: 21, FieldDepartureMail: 22,
		}
		d.CombinedPassengers = true
	case Layout3:
		cols = map[Field]int{
			FieldAirline: 1, FieldAircraft: 4, FieldAvailableSeats: 5,
			FieldRegistration: 6, FieldOperationType: 7, FieldMTOW: 8,
			FieldArrivalFlight: 9, FieldDepartureFlight: 17,
			FieldScheduledArrival: 10, FieldActualArrival: 11,
			FieldScheduledDeparture: 18, FieldActualDeparture: 19,
			FieldArrivalPax: 12, FieldArrivalInfants: 13,
			FieldDeparturePax: 20, FieldDepartureInfants: 21,
			FieldArrivalBaggage: 14, FieldDepartureBaggage: 22,
			FieldArrivalCargo: 15, FieldDepartureCargo: 23,
			FieldArrivalMail: 16, FieldDepartureMail: 24,
		}
	case Layout4:
		// The second "Kompanija" column holds the airline.
		cols = map[Field]int{
			FieldAirline: 3, FieldAircraft: 6, FieldAvailableSeats: 7,
			FieldRegistration: 8, FieldOperationType: 9, FieldMTOW: 10,
			FieldArrivalFlight: 11, FieldDepartureFlight: 19,
			FieldScheduledArrival: 12, FieldActualArrival: 13,
			FieldScheduledDeparture: 20, FieldActualDeparture: 21,
			FieldArrivalPax: 14, FieldArrivalInfants: 15,
			FieldDeparturePax: 22, FieldDepartureInfants: 23,
			FieldArrivalBaggage: 16, FieldDepartureBaggage: 24,
			FieldArrivalCargo: 17, FieldDepartureCargo: 25,
			FieldArrivalMail: 18, FieldDepartureMail: 26,
		}
	case Layout5:
		cols = map[Field]int{
			FieldAirline: 1, FieldAircraft: 2, FieldRegistration: 3,
			FieldMTOW: 4, FieldOperationType: 5,
			FieldRouteFrom: 6, FieldRouteTo: 13,
			FieldArrivalFlight: 7, FieldDepartureFlight: 14,
			FieldScheduledArrival: 8, FieldActualArrival: 9,
			FieldScheduledDeparture: 15, FieldActualDeparture: 16,
			FieldArrivalPax: 10, FieldDeparturePax: 17,
			FieldArrivalBaggage: 11, FieldDepartureBaggage: 18,
			FieldArrivalCargo: 12, FieldDepartureCargo: 19,
		}
		d.CombinedPassengers = true
		d.DateColumn = true
	case LayoutUnknown:
		d.Columns = emptyColumnMap()
		return d
	}

	m := emptyColumnMap()
	m[FieldDate] = 0
	for f, idx := range cols {
		m[f] = idx
	}
	d.Columns = m
	return d
}
