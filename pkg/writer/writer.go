// Package writer serializes extracted flight records: the JSON document
// consumed downstream, plus Parquet and CSV exports of the same records.
package writer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tzl-ops/flightarchive/internal/model"
	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
)

// Writer writes flight records to an output format.
type Writer interface {
	// Write appends records.
	Write(ctx context.Context, records []model.FlightRecord) error

	// Close flushes buffered data and releases resources.
	Close() error
}

// Config holds writer configuration.
type Config struct {
	// BatchSize is the number of records per Arrow record batch.
	BatchSize int

	// Compression type for Parquet output.
	Compression CompressionType

	// RowGroupSize is the maximum number of rows per Parquet row group.
	RowGroupSize int64
}

// CompressionType represents Parquet compression options.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
)

// String returns the compression type name.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompression parses a compression type string.
func ParseCompression(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// DefaultConfig returns a Config with sensible defaults. An archive year is
// tens of thousands of records, so one row group usually holds it all.
func DefaultConfig() Config {
	return Config{
		BatchSize:    4096,
		Compression:  CompressionSnappy,
		RowGroupSize: 64 * 1024,
	}
}

// WriteFile writes path through a temporary file in the same directory
// and renames it into place, so readers never see a partial file.
// Failures carry code E301.
func WriteFile(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeWriteFailed, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeWriteFailed, "create %s", path)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeWriteFailed, "write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeWriteFailed, "sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeWriteFailed, "close %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeWriteFailed, "chmod %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeWriteFailed, "rename %s", path)
	}
	return nil
}

// WriteRecordsFile writes records to path with the writer built by open.
// The writer never sees the underlying file, so encoders that close their
// sink cannot close it early.
func WriteRecordsFile(ctx context.Context, path string, records []model.FlightRecord, open func(io.Writer) (Writer, error)) error {
	return WriteFile(path, func(out io.Writer) error {
		w, err := open(struct{ io.Writer }{out})
		if err != nil {
			return err
		}
		if err := w.Write(ctx, records); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close: %w", err)
		}
		return nil
	})
}
