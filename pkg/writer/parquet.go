package writer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// column binds an Arrow field to the record value it holds.
type column struct {
	field  arrow.Field
	append func(b array.Builder, r *model.FlightRecord)
}

func stringCol(name string, get func(r *model.FlightRecord) string) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.BinaryTypes.String},
		append: func(b array.Builder, r *model.FlightRecord) {
			b.(*array.StringBuilder).Append(get(r))
		},
	}
}

func optStringCol(name string, get func(r *model.FlightRecord) *string) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true},
		append: func(b array.Builder, r *model.FlightRecord) {
			sb := b.(*array.StringBuilder)
			if v := get(r); v != nil {
				sb.Append(*v)
			} else {
				sb.AppendNull()
			}
		},
	}
}

func intCol(name string, get func(r *model.FlightRecord) int) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int32},
		append: func(b array.Builder, r *model.FlightRecord) {
			b.(*array.Int32Builder).Append(int32(get(r)))
		},
	}
}

func optIntCol(name string, get func(r *model.FlightRecord) *int) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		append: func(b array.Builder, r *model.FlightRecord) {
			ib := b.(*array.Int32Builder)
			if v := get(r); v != nil {
				ib.Append(int32(*v))
			} else {
				ib.AppendNull()
			}
		},
	}
}

// flightColumns is the Parquet layout of a FlightRecord, in column order.
var flightColumns = []column{
	{
		field: arrow.Field{Name: "date", Type: arrow.FixedWidthTypes.Date32},
		append: func(b array.Builder, r *model.FlightRecord) {
			b.(*array.Date32Builder).Append(arrow.Date32FromTime(r.Date.Time()))
		},
	},
	stringCol("airline", func(r *model.FlightRecord) string { return r.Airline }),
	stringCol("route", func(r *model.FlightRecord) string { return r.Route }),
	stringCol("departure_airport", func(r *model.FlightRecord) string { return r.DepartureAirport }),
	stringCol("arrival_airport", func(r *model.FlightRecord) string { return r.ArrivalAirport }),
	stringCol("aircraft_model", func(r *model.FlightRecord) string { return r.AircraftModel }),
	stringCol("registration", func(r *model.FlightRecord) string { return r.Registration }),
	stringCol("operation_type", func(r *model.FlightRecord) string { return r.OperationType }),
	optIntCol("available_seats", func(r *model.FlightRecord) *int { return r.AvailableSeats }),
	optIntCol("mtow", func(r *model.FlightRecord) *int { return r.MTOW }),
	optStringCol("arrival_flight_number", func(r *model.FlightRecord) *string { return r.ArrivalFlightNumber }),
	optStringCol("departure_flight_number", func(r *model.FlightRecord) *string { return r.DepartureFlightNumber }),
	optStringCol("scheduled_arrival_time", func(r *model.FlightRecord) *string { return r.ScheduledArrivalTime }),
	optStringCol("actual_arrival_time", func(r *model.FlightRecord) *string { return r.ActualArrivalTime }),
	optStringCol("scheduled_departure_time", func(r *model.FlightRecord) *string { return r.ScheduledDepartureTime }),
	optStringCol("actual_departure_time", func(r *model.FlightRecord) *string { return r.ActualDepartureTime }),
	optIntCol("arrival_passengers", func(r *model.FlightRecord) *int { return r.ArrivalPassengers }),
	optIntCol("arrival_infants", func(r *model.FlightRecord) *int { return r.ArrivalInfants }),
	optIntCol("departure_passengers", func(r *model.FlightRecord) *int { return r.DeparturePassengers }),
	optIntCol("departure_infants", func(r *model.FlightRecord) *int { return r.DepartureInfants }),
	optIntCol("arrival_baggage", func(r *model.FlightRecord) *int { return r.ArrivalBaggage }),
	optIntCol("departure_baggage", func(r *model.FlightRecord) *int { return r.DepartureBaggage }),
	optIntCol("arrival_cargo", func(r *model.FlightRecord) *int { return r.ArrivalCargo }),
	optIntCol("departure_cargo", func(r *model.FlightRecord) *int { return r.DepartureCargo }),
	optIntCol("arrival_mail", func(r *model.FlightRecord) *int { return r.ArrivalMail }),
	optIntCol("departure_mail", func(r *model.FlightRecord) *int { return r.DepartureMail }),
	stringCol("source_file", func(r *model.FlightRecord) string { return r.SourceFile }),
	stringCol("sheet", func(r *model.FlightRecord) string { return r.Sheet }),
	intCol("source_row", func(r *model.FlightRecord) int { return r.SourceRow }),
	intCol("layout", func(r *model.FlightRecord) int { return r.Layout }),
}

// FlightSchema returns the Arrow schema of the Parquet export.
func FlightSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(flightColumns))
	for i, c := range flightColumns {
		fields[i] = c.field
	}
	return arrow.NewSchema(fields, nil)
}

// ParquetWriter writes flight records to Parquet using Apache Arrow.
type ParquetWriter struct {
	cfg Config

	schema  *arrow.Schema
	builder *array.RecordBuilder
	writer  *pqarrow.FileWriter

	mu               sync.Mutex
	rowCount         int
	totalRowsWritten int64
	closed           bool
}

// NewParquetWriter creates a new Parquet writer.
func NewParquetWriter(output io.Writer, cfg Config) (*ParquetWriter, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.RowGroupSize <= 0 {
		cfg.RowGroupSize = DefaultConfig().RowGroupSize
	}

	var codec compress.Compression
	switch cfg.Compression {
	case CompressionSnappy:
		codec = compress.Codecs.Snappy
	case CompressionGzip:
		codec = compress.Codecs.Gzip
	case CompressionZstd:
		codec = compress.Codecs.Zstd
	default:
		codec = compress.Codecs.Uncompressed
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
		parquet.WithMaxRowGroupLength(cfg.RowGroupSize),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	schema := FlightSchema()
	writer, err := pqarrow.NewFileWriter(schema, output, writerProps, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	return &ParquetWriter{
		cfg:     cfg,
		schema:  schema,
		builder: array.NewRecordBuilder(memory.NewGoAllocator(), schema),
		writer:  writer,
	}, nil
}

// Write implements the Writer interface.
func (w *ParquetWriter) Write(ctx context.Context, records []model.FlightRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("parquet writer closed")
	}

	for i := range records {
		if i%w.cfg.BatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for col, c := range flightColumns {
			c.append(w.builder.Field(col), &records[i])
		}
		w.rowCount++

		if w.rowCount >= w.cfg.BatchSize {
			if err := w.flushBatch(); err != nil {
				return err
			}
		}
	}
	return nil
}

// flushBatch writes the current batch to Parquet.
func (w *ParquetWriter) flushBatch() error {
	if w.rowCount == 0 {
		return nil
	}

	batch := w.builder.NewRecord()
	defer batch.Release()

	if err := w.writer.Write(batch); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	w.totalRowsWritten += int64(w.rowCount)
	w.rowCount = 0
	return nil
}

// Close flushes remaining rows and writes the Parquet footer.
func (w *ParquetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	defer w.builder.Release()

	if err := w.flushBatch(); err != nil {
		return err
	}
	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// RowsWritten returns the total number of rows written.
func (w *ParquetWriter) RowsWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalRowsWritten
}
