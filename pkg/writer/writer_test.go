package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/jszwec/csvutil"

	"github.com/tzl-ops/flightarchive/internal/model"
	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
	"github.com/tzl-ops/flightarchive/pkg/ingest"
)

func intp(v int) *int       { return &v }
func strp(s string) *string { return &s }

func sampleRecords() []model.FlightRecord {
	d, _ := model.NewDate(2025, time.January, 5)
	return []model.FlightRecord{
		{
			Date: d, Airline: "FLYNAS", Route: "TZL-JED",
			DepartureAirport: "TZL", ArrivalAirport: "JED",
			AircraftModel: "A320", Registration: "HZ-NS1", OperationType: "CHARTER",
			AvailableSeats: intp(174), DepartureFlightNumber: strp("XY 512"),
			DeparturePassengers: intp(165), DepartureInfants: intp(6), DepartureBaggage: intp(110),
			SourceFile: "2025/01. JANUAR/jan.xlsx", Sheet: "05", SourceRow: 2, Layout: 1,
		},
		{
			Date: d, Airline: "WIZZ AIR", Route: "FMM-TZL",
			DepartureAirport: "FMM", ArrivalAirport: "TZL", OperationType: "N/A",
			ArrivalPassengers: intp(0),
			SourceFile: "2025/01. JANUAR/jan.xlsx", Sheet: "05", SourceRow: 3, Layout: 1,
		},
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in   string
		want CompressionType
	}{
		{"snappy", CompressionSnappy},
		{"gzip", CompressionGzip},
		{"zstd", CompressionZstd},
		{"none", CompressionNone},
		{"lz4", CompressionNone},
	}
	for _, tt := range tests {
		if got := ParseCompression(tt.in); got != tt.want {
			t.Errorf("ParseCompression(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParquetWriter_RoundTrip(t *testing.T) {
	for _, c := range []CompressionType{CompressionNone, CompressionSnappy, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			cfg := DefaultConfig()
			cfg.Compression = c
			cfg.BatchSize = 1

			w, err := NewParquetWriter(&buf, cfg)
			if err != nil {
				t.Fatalf("NewParquetWriter failed: %v", err)
			}
			if err := w.Write(context.Background(), sampleRecords()); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if w.RowsWritten() != 2 {
				t.Errorf("Expected 2 rows written, got %d", w.RowsWritten())
			}

			reader, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("NewParquetReader failed: %v", err)
			}
			defer reader.Close()

			fr, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
			if err != nil {
				t.Fatalf("NewFileReader failed: %v", err)
			}
			table, err := fr.ReadTable(context.Background())
			if err != nil {
				t.Fatalf("ReadTable failed: %v", err)
			}
			defer table.Release()

			if table.NumRows() != 2 {
				t.Errorf("Expected 2 rows, got %d", table.NumRows())
			}
			if int(table.NumCols()) != len(flightColumns) {
				t.Errorf("Expected %d columns, got %d", len(flightColumns), table.NumCols())
			}
			if name := table.Schema().Field(0).Name; name != "date" {
				t.Errorf("Expected first column date, got %s", name)
			}
		})
	}
}

func TestParquetWriter_ClosedWrite(t *testing.T) {
	w, err := NewParquetWriter(io.Discard, DefaultConfig())
	if err != nil {
		t.Fatalf("NewParquetWriter failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Write(context.Background(), sampleRecords()); err == nil {
		t.Error("Expected error writing to a closed writer")
	}
	if err := w.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
}

func TestFlightSchema_Nullability(t *testing.T) {
	schema := FlightSchema()
	tests := []struct {
		name     string
		nullable bool
	}{
		{"airline", false},
		{"available_seats", true},
		{"arrival_passengers", true},
		{"departure_flight_number", true},
		{"source_row", false},
	}
	for _, tt := range tests {
		idx := schema.FieldIndices(tt.name)
		if len(idx) != 1 {
			t.Errorf("Expected field %s in schema", tt.name)
			continue
		}
		if got := schema.Field(idx[0]).Nullable; got != tt.nullable {
			t.Errorf("Field %s nullable = %v, want %v", tt.name, got, tt.nullable)
		}
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	if err := w.Write(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var rows []csvRow
	if err := csvutil.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Date != "2025-01-05" || rows[0].Airline != "FLYNAS" {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[0].DeparturePassengers == nil || *rows[0].DeparturePassengers != 165 {
		t.Errorf("Expected 165 departure passengers, got %v", rows[0].DeparturePassengers)
	}
	if rows[1].DeparturePassengers != nil {
		t.Errorf("Expected empty departure passengers, got %v", *rows[1].DeparturePassengers)
	}
	if rows[1].ArrivalPassengers == nil || *rows[1].ArrivalPassengers != 0 {
		t.Errorf("Expected zero arrival passengers to survive, got %v", rows[1].ArrivalPassengers)
	}
}

func TestCSVWriter_EmptyHasHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "date,airline,route,") {
		t.Errorf("Expected header line, got %q", buf.String())
	}
}

func TestNewDocument(t *testing.T) {
	mod := time.Date(2025, time.February, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	now := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	res := &ingest.Result{Records: sampleRecords(), SourceModTime: mod}
	res.Stats.Processed = 2

	doc := NewDocument(res, true, now)
	if doc.ExtractedAt != "2025-02-01T09:30:00Z" {
		t.Errorf("Expected source mtime in UTC, got %s", doc.ExtractedAt)
	}
	if doc.TotalCount != 2 {
		t.Errorf("Expected totalCount 2, got %d", doc.TotalCount)
	}

	doc = NewDocument(res, false, now)
	if doc.ExtractedAt != "2026-03-03T12:00:00Z" {
		t.Errorf("Expected now, got %s", doc.ExtractedAt)
	}
}

func TestEncodeDocument_EmptyFlights(t *testing.T) {
	doc := NewDocument(&ingest.Result{}, true, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	if err := EncodeDocument(&buf, doc, false); err != nil {
		t.Fatalf("EncodeDocument failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	flights, ok := decoded["flights"].([]any)
	if !ok || len(flights) != 0 {
		t.Errorf("Expected empty flights array, got %v", decoded["flights"])
	}
	if decoded["totalCount"] != float64(0) {
		t.Errorf("Expected totalCount 0, got %v", decoded["totalCount"])
	}
	stats, ok := decoded["stats"].(map[string]any)
	if !ok {
		t.Fatalf("Expected stats object, got %v", decoded["stats"])
	}
	for _, key := range []string{"processed", "skipped", "errored"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Expected stats.%s", key)
		}
	}
}

func TestWriteDocument_Idempotent(t *testing.T) {
	dir := t.TempDir()
	res := &ingest.Result{Records: sampleRecords(), SourceModTime: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}

	var outputs [2][]byte
	for i := range outputs {
		path := filepath.Join(dir, "out.json")
		if err := WriteDocument(path, NewDocument(res, true, time.Now()), true); err != nil {
			t.Fatalf("WriteDocument failed: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		outputs[i] = data
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("Expected byte-identical output for reproducible documents")
	}
}

func TestWriteFile_FailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteFile(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return io.ErrUnexpectedEOF
	})
	if !apperrors.IsCode(err, apperrors.CodeWriteFailed) {
		t.Errorf("Expected E301, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Errorf("Expected target untouched, got %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected temp file removed, got %d entries", len(entries))
	}
}

func TestWriteRecordsFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flights.csv")
	err := WriteRecordsFile(context.Background(), path, sampleRecords(), func(w io.Writer) (Writer, error) {
		return NewCSVWriter(w), nil
	})
	if err != nil {
		t.Fatalf("WriteRecordsFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 3 {
		t.Errorf("Expected 3 lines, got %d", lines)
	}
}
