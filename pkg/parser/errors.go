package parser

import "errors"

var (
	// ErrPassengerFormat is returned when a passenger cell matches neither
	// the composite "adults+infants" form nor a plain count.
	ErrPassengerFormat = errors.New("parser: unrecognized passenger format")

	// ErrRouteEmpty is returned when the route cell is blank or a sentinel.
	ErrRouteEmpty = errors.New("parser: empty route")

	// ErrRouteTooShort is returned when a route has fewer than two airports.
	ErrRouteTooShort = errors.New("parser: route needs at least two airports")

	// ErrNotANumber is returned when a numeric cell holds stray text.
	ErrNotANumber = errors.New("parser: value is not a number")

	// ErrNegative is returned when a count or weight is negative.
	ErrNegative = errors.New("parser: negative value")
)
