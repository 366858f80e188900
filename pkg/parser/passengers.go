package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/tzl-ops/flightarchive/internal/model"
)

var (
	// "165+6 INF", "110 + 6", "110+6"
	compositePaxRe = regexp.MustCompile(`^(\d+)\s*\+\s*(\d+)`)
	plainPaxRe     = regexp.MustCompile(`^(\d+)$`)
)

// ParsePassengers parses a passenger cell into an adults/infants pair.
//
// Blank and sentinel cells return (nil, nil): the count was not reported.
// Cells that match no known form return (nil, ErrPassengerFormat).
//
// The displayed text carries the composite "adults+infants" form, so it is
// tried first. A numeric cell displayed with a number format ("165.00")
// falls back to its stored value.
func ParsePassengers(c model.Cell) (*model.PassengerCount, error) {
	text := c.Trimmed()
	raw := strings.TrimSpace(c.Raw)
	if text == "" {
		return ParsePassengerString(raw)
	}

	pc, err := ParsePassengerString(text)
	if errors.Is(err, ErrPassengerFormat) && raw != "" && raw != text {
		if rpc, rerr := ParsePassengerString(raw); rerr == nil {
			return rpc, nil
		}
	}
	return pc, err
}

// ParsePassengerString is ParsePassengers for a plain string.
func ParsePassengerString(s string) (*model.PassengerCount, error) {
	s = strings.TrimSpace(s)
	if IsSentinel(s) {
		return nil, nil
	}

	if m := compositePaxRe.FindStringSubmatch(s); m != nil {
		adults, err1 := strconv.Atoi(m[1])
		infants, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return nil, ErrPassengerFormat
		}
		return &model.PassengerCount{Adults: adults, Infants: infants}, nil
	}

	if m := plainPaxRe.FindStringSubmatch(s); m != nil {
		adults, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, ErrPassengerFormat
		}
		return &model.PassengerCount{Adults: adults}, nil
	}

	return nil, ErrPassengerFormat
}
