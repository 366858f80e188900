// Package parser provides the leaf parsers used to normalize traffic
// spreadsheet cells: composite passenger strings, route strings and
// tolerant numeric coercion.
//
// All parsers are pure functions. They never panic on malformed input;
// failures are reported through the sentinel errors in errors.go so callers
// can count them without aborting the surrounding row.
package parser

import "strings"

// sentinels are the "no data" tokens operators type into empty cells.
var sentinels = map[string]struct{}{
	"":    {},
	"-":   {},
	"N/A": {},
}

// IsSentinel reports whether s is blank or one of the "no data" tokens.
func IsSentinel(s string) bool {
	_, ok := sentinels[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}
