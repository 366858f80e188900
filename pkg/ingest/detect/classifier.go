// Package detect classifies worksheets into one of the historical column
// layouts of the traffic archive.
package detect

import (
	"errors"
	"strings"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// ErrMissingColumn is wrapped when a required column cannot be resolved.
var ErrMissingColumn = errors.New("detect: required column missing")

// Header labels (Bosnian) used to recognise layouts.
const (
	labelDate     = "datum"
	labelCompany  = "kompanija"
	labelType     = "tip"
	labelAircraft = "a/c"
	labelPax      = "putnik"
	labelRoute    = "ruta"
	labelICAO     = "icao"
	labelInfants  = "beb"
)

// Outcome tags a classification result.
type Outcome uint8

const (
	// Unknown: no layout fits; the sheet is skipped.
	Unknown Outcome = iota
	// Known: the header carries positive evidence for the layout.
	Known
	// Fallback: Layout 3 chosen only because nothing else matched.
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Known:
		return "known"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying one header row.
type Classification struct {
	Outcome    Outcome
	Descriptor Descriptor
	Reason     string
}

// Usable reports whether rows can be read with the descriptor.
func (c Classification) Usable() bool {
	return c.Outcome != Unknown
}

// Classifier maps a header row to a layout descriptor.
// It is stateless and safe for concurrent use.
type Classifier struct {
	catalog *Catalog
}

// NewClassifier returns a classifier over catalog. A nil catalog means
// NewCatalog().
func NewClassifier(catalog *Catalog) *Classifier {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Classifier{catalog: catalog}
}

// Classify inspects a header row. It never panics; headers that match no
// layout produce an Unknown classification with a reason.
func (c *Classifier) Classify(header []model.Cell) Classification {
	h := newHeader(header)

	if h.isLayout5() {
		return c.finish(Layout5, Known, "dated rows with split route columns", NoColumn)
	}

	route := h.first(labelRoute)
	if route == NoColumn {
		return Classification{Outcome: Unknown, Reason: "no route column (" + labelRoute + ")"}
	}

	if h.first(labelICAO) == NoColumn {
		return c.finish(Layout1, Known, "no ICAO column", route)
	}

	if h.contains(0, labelDate) && h.contains(2, labelDate) {
		return c.finish(Layout4, Known, "duplicated date columns", route)
	}

	pax := h.all(labelPax)
	if len(pax) >= 2 && pax[0] == 15 {
		return c.finish(Layout2, Known, "composite passengers at column 15", route)
	}

	if h.first(labelInfants) != NoColumn {
		return c.finish(Layout3, Known, "separate infant columns", route)
	}
	return c.finish(Layout3, Fallback, "no layout signature matched, assuming split passengers", route)
}

func (c *Classifier) finish(l Layout, o Outcome, reason string, route int) Classification {
	d, ok := c.catalog.Lookup(l)
	if !ok {
		return Classification{Outcome: Unknown, Reason: "layout not in catalog: " + l.String()}
	}
	if route != NoColumn {
		d.Columns[FieldRoute] = route
	}
	if err := d.Validate(); err != nil {
		return Classification{Outcome: Unknown, Descriptor: d, Reason: err.Error()}
	}
	return Classification{Outcome: o, Descriptor: d, Reason: reason}
}

// header holds the lower-cased header labels.
type header []string

func newHeader(cells []model.Cell) header {
	h := make(header, len(cells))
	for i, c := range cells {
		h[i] = strings.ToLower(strings.TrimSpace(c.Text))
	}
	return h
}

func (h header) contains(i int, label string) bool {
	return i >= 0 && i < len(h) && strings.Contains(h[i], label)
}

func (h header) first(label string) int {
	for i := range h {
		if strings.Contains(h[i], label) {
			return i
		}
	}
	return NoColumn
}

func (h header) all(label string) []int {
	var idx []int
	for i := range h {
		if strings.Contains(h[i], label) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (h header) isLayout5() bool {
	return len(h) > 17 &&
		h.contains(0, labelDate) &&
		h.contains(1, labelCompany) &&
		h.contains(2, labelType) && h.contains(2, labelAircraft) &&
		h.contains(10, labelPax)
}
