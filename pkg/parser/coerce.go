package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// Int coerces a numeric cell. The stored raw value is preferred over the
// displayed text so thousands separators and number formats do not matter.
//
// Blank and sentinel cells return (nil, nil). Stray text returns
// (nil, ErrNotANumber); negative values return (nil, ErrNegative).
// Non-integral numbers are truncated toward zero.
func Int(c model.Cell) (*int, error) {
	s := strings.TrimSpace(c.Raw)
	if s == "" {
		s = c.Trimmed()
	}
	return IntString(s)
}

// IntString is Int for a plain string.
func IntString(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if IsSentinel(s) {
		return nil, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, ErrNotANumber
		}
		if f >= math.MaxInt || f <= math.MinInt {
			return nil, ErrNotANumber
		}
		n = int(math.Trunc(f))
	}
	if n < 0 {
		return nil, ErrNegative
	}
	return &n, nil
}

// Text returns the trimmed displayed value, or nil for blank and sentinel
// cells.
func Text(c model.Cell) *string {
	s := c.Trimmed()
	if IsSentinel(s) {
		return nil
	}
	return &s
}
