package writer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/tzl-ops/flightarchive/internal/model"
	"github.com/tzl-ops/flightarchive/pkg/ingest"
)

// Document is the JSON output consumed downstream.
type Document struct {
	Flights     []model.FlightRecord `json:"flights"`
	TotalCount  int                  `json:"totalCount"`
	ExtractedAt string               `json:"extractedAt"`
	Stats       ingest.Stats         `json:"stats"`
}

// NewDocument builds the output document of a run. With reproducible set,
// extractedAt is the modification time of the newest source workbook, so an
// unchanged archive always yields the same bytes; otherwise it is now.
func NewDocument(res *ingest.Result, reproducible bool, now time.Time) Document {
	at := now
	if reproducible && !res.SourceModTime.IsZero() {
		at = res.SourceModTime
	}

	flights := res.Records
	if flights == nil {
		flights = []model.FlightRecord{}
	}

	return Document{
		Flights:     flights,
		TotalCount:  len(flights),
		ExtractedAt: at.UTC().Format(time.RFC3339),
		Stats:       res.Stats,
	}
}

// EncodeDocument writes doc as JSON, indented when pretty is set.
func EncodeDocument(w io.Writer, doc Document, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}

// WriteDocument writes doc to path atomically.
func WriteDocument(path string, doc Document, pretty bool) error {
	return WriteFile(path, func(w io.Writer) error {
		return EncodeDocument(w, doc, pretty)
	})
}
