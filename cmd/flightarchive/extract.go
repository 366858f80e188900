package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tzl-ops/flightarchive/internal/model"
	"github.com/tzl-ops/flightarchive/pkg/config"
	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
	"github.com/tzl-ops/flightarchive/pkg/index"
	"github.com/tzl-ops/flightarchive/pkg/ingest"
	"github.com/tzl-ops/flightarchive/pkg/ingest/assemble"
	ingesterrors "github.com/tzl-ops/flightarchive/pkg/ingest/errors"
	ingesttelemetry "github.com/tzl-ops/flightarchive/pkg/ingest/telemetry"
	"github.com/tzl-ops/flightarchive/pkg/inspect"
	"github.com/tzl-ops/flightarchive/pkg/storage/s3"
	tracing "github.com/tzl-ops/flightarchive/pkg/telemetry"
	"github.com/tzl-ops/flightarchive/pkg/tui"
	"github.com/tzl-ops/flightarchive/pkg/writer"
)

// extractFlags are the flags shared by extract and watch. Flags that are
// set override the configuration.
type extractFlags struct {
	root  string
	year  int
	month string

	output       string
	pretty       bool
	reproducible bool
	parquet      string
	csv          string
	quarantine   string
	compression  string
	upload       string

	workers     int
	home        string
	roundTrip   string
	onFallback  string
	checkpoint  string
	metricsFile string

	airlines []string
	quality  bool
	progress bool
}

func (f *extractFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.root, "root", "", "Archive root directory")
	fs.IntVar(&f.year, "year", 0, "Year to extract (0 = every year directory)")
	fs.StringVar(&f.month, "month", "", `Month filter: "3", "03" or a folder name`)

	fs.StringVarP(&f.output, "output", "o", "", `JSON output path ("-" for stdout)`)
	fs.BoolVar(&f.pretty, "pretty", true, "Indent the JSON output")
	fs.BoolVar(&f.reproducible, "reproducible", true, "Use the newest workbook mtime as extractedAt")
	fs.StringVar(&f.parquet, "parquet", "", "Also write records to this Parquet file")
	fs.StringVar(&f.csv, "csv", "", "Also write records to this CSV file")
	fs.StringVar(&f.quarantine, "quarantine", "", "Write rejected rows to this JSONL file")
	fs.StringVar(&f.compression, "compression", "", "Parquet compression: snappy, zstd, gzip, none")
	fs.StringVar(&f.upload, "upload", "", "Upload written files to s3://bucket/prefix/")

	fs.IntVar(&f.workers, "workers", 0, "Months extracted concurrently (0 = auto)")
	fs.StringVar(&f.home, "home", "", "Home airport IATA code")
	fs.StringVar(&f.roundTrip, "round-trip", "", "Three-airport routes: outbound or split")
	fs.StringVar(&f.onFallback, "on-fallback", "", "Sheets matched only by fallback: process or skip")
	fs.StringVar(&f.checkpoint, "checkpoint", "", "Month cache backend: none, file, redis")
	fs.StringVar(&f.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")

	fs.StringSliceVar(&f.airlines, "airline", nil, "Only output flights of these airlines")
	fs.BoolVar(&f.quality, "quality", false, "Print a record quality report")
	fs.BoolVar(&f.progress, "progress", true, "Show month progress")
}

// apply overrides cfg with the flags set on cmd.
func (f *extractFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	set := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}

	set("root", &cfg.Archive.Root, f.root)
	set("output", &cfg.Output.Path, f.output)
	set("parquet", &cfg.Output.Parquet, f.parquet)
	set("csv", &cfg.Output.CSV, f.csv)
	set("quarantine", &cfg.Output.Quarantine, f.quarantine)
	set("compression", &cfg.Output.Compression, f.compression)
	set("upload", &cfg.Output.Upload, f.upload)
	set("home", &cfg.Extraction.HomeAirport, f.home)
	set("round-trip", &cfg.Extraction.RoundTrip, f.roundTrip)
	set("on-fallback", &cfg.Extraction.OnFallback, f.onFallback)
	set("checkpoint", &cfg.Checkpoint.Backend, f.checkpoint)
	set("metrics-textfile", &cfg.Metrics.Textfile, f.metricsFile)

	if changed("pretty") {
		cfg.Output.Pretty = f.pretty
	}
	if changed("reproducible") {
		cfg.Output.Reproducible = f.reproducible
	}
	if changed("workers") {
		cfg.Extraction.Workers = f.workers
	}
}

func newExtractCmd(a *app) *cobra.Command {
	f := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract flight records from the archive",
		Long: `Extract every flight movement of a year (or all years) into one JSON
document {flights, totalCount, extractedAt, stats}.

Examples:
  flightarchive extract --root /srv/archive --year 2025 -o flights.json
  flightarchive extract --root /srv/archive --year 2025 --month 03 -o march.json
  flightarchive extract --root /srv/archive --year 2025 --parquet flights.parquet --csv flights.csv
  flightarchive extract --root /srv/archive --quarantine rejects.jsonl --checkpoint file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a.cfg)
			_, err := a.extract(cmd.Context(), f)
			return err
		},
	}
	f.register(cmd)
	return cmd
}

// extract runs one extraction with the current configuration and writes
// every configured output.
func (a *app) extract(ctx context.Context, f *extractFlags) (*ingest.Result, error) {
	cfg := a.cfg
	if cfg.Archive.Root == "" {
		return nil, apperrors.New(apperrors.CodeInvalidConfig, "archive root is required (--root or archive.root)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shutdown, err := tracing.Init(ctx, cfg.Telemetry)
	if err != nil {
		a.log.Warn("Tracing disabled", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	store, err := cfg.Checkpoint.OpenCheckpoint(ctx)
	if err != nil {
		return nil, err
	}

	opts := pipelineOptions(cfg, a.log, a.metrics)
	if store != nil {
		if c, ok := store.(io.Closer); ok {
			defer c.Close()
		}
		opts = append(opts, ingest.WithCheckpoint(store))
	}

	var quarantine *ingesterrors.FileQuarantine
	if cfg.Output.Quarantine != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.Quarantine), 0o755); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeWriteFailed, "quarantine directory")
		}
		q, err := ingesterrors.NewFileQuarantine(cfg.Output.Quarantine)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeWriteFailed, "open quarantine")
		}
		defer q.Close()
		quarantine = q
		opts = append(opts, ingest.WithQuarantine(q))
	}

	if f.progress {
		bar := tui.MonthProgress(a.stderr, -1)
		defer bar.Finish()
		opts = append(opts, ingest.WithMonthCallback(func(ingest.MonthResult) { _ = bar.Add(1) }))
	}

	res, err := ingest.New(opts...).Run(ctx, ingest.Request{
		Root:  cfg.Archive.Root,
		Year:  f.year,
		Month: f.month,
	})
	if err != nil {
		return nil, err
	}

	// The quarantine is one of the outputs and may be uploaded.
	if quarantine != nil {
		if err := quarantine.Close(); err != nil {
			return res, apperrors.Wrap(err, apperrors.CodeWriteFailed, "write quarantine")
		}
	}

	if len(f.airlines) > 0 {
		res.Records = filterAirlines(res.Records, f.airlines)
	}

	outputs, err := a.writeOutputs(ctx, res)
	if err != nil {
		return res, err
	}

	if cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			a.log.Warn("Metrics textfile not written", zap.Error(err))
		}
	}

	tui.PrintSummary(a.stderr, res, outputs)
	if f.quality {
		qa := inspect.NewQualityAnalyzer()
		qa.Add(res.Records)
		fmt.Fprint(a.stderr, qa.Report().String())
	}
	return res, nil
}

// pipelineOptions maps the configuration to pipeline options.
func pipelineOptions(cfg *config.Config, log *zap.Logger, metrics *ingesttelemetry.Metrics) []ingest.Option {
	opts := []ingest.Option{
		ingest.WithLogger(log),
		ingest.WithAssembler(assemble.Config{
			HomeAirport: cfg.Extraction.HomeAirport,
			RoundTrip:   assemble.ParseRoundTripPolicy(cfg.Extraction.RoundTrip),
		}),
		ingest.WithFallback(ingest.ParseFallbackPolicy(cfg.Extraction.OnFallback)),
		ingest.WithMaxErrors(cfg.Extraction.MaxErrors),
		ingest.WithReportDirs(cfg.Archive.ReportDirs...),
		ingest.WithExcludeMarker(cfg.Archive.ExcludeMarker),
	}
	if cfg.Extraction.Workers > 0 {
		opts = append(opts, ingest.WithWorkers(cfg.Extraction.Workers))
	}
	if metrics != nil {
		opts = append(opts, ingest.WithMetrics(metrics))
	}
	return opts
}

// filterAirlines keeps the records of the given airlines, in order.
func filterAirlines(records []model.FlightRecord, airlines []string) []model.FlightRecord {
	names := make([]string, len(airlines))
	for i, a := range airlines {
		names[i] = assemble.NormalizeAirline(a)
	}
	idx := index.Build(records)
	return index.Select(records, idx.LookupAny(index.ColumnAirline, names))
}

// writeOutputs writes the JSON document and the optional exports, then
// uploads them. It returns the written locations.
func (a *app) writeOutputs(ctx context.Context, res *ingest.Result) ([]string, error) {
	cfg := a.cfg.Output
	doc := writer.NewDocument(res, cfg.Reproducible, time.Now())

	var files []string
	switch cfg.Path {
	case "-":
		if err := writer.EncodeDocument(a.stdout, doc, cfg.Pretty); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeWriteFailed, "write stdout")
		}
	case "":
	default:
		if err := writer.WriteDocument(cfg.Path, doc, cfg.Pretty); err != nil {
			return nil, err
		}
		files = append(files, cfg.Path)
	}

	if cfg.Parquet != "" {
		wc := writer.DefaultConfig()
		wc.Compression = writer.ParseCompression(strings.ToLower(cfg.Compression))
		err := writer.WriteRecordsFile(ctx, cfg.Parquet, res.Records, func(w io.Writer) (writer.Writer, error) {
			pw, err := writer.NewParquetWriter(w, wc)
			if err != nil {
				return nil, err
			}
			return pw, nil
		})
		if err != nil {
			return files, err
		}
		files = append(files, cfg.Parquet)
	}

	if cfg.CSV != "" {
		err := writer.WriteRecordsFile(ctx, cfg.CSV, res.Records, func(w io.Writer) (writer.Writer, error) {
			return writer.NewCSVWriter(w), nil
		})
		if err != nil {
			return files, err
		}
		files = append(files, cfg.CSV)
	}

	if cfg.Quarantine != "" {
		files = append(files, cfg.Quarantine)
	}

	if cfg.Upload == "" || len(files) == 0 {
		return files, nil
	}

	upload := a.upload
	if upload == nil {
		client, err := s3.NewClient(ctx, a.cfg.S3)
		if err != nil {
			return files, err
		}
		upload = client.Upload
	}
	outputs := append([]string(nil), files...)
	for _, file := range files {
		dest, err := upload(ctx, file, cfg.Upload)
		if err != nil {
			return outputs, err
		}
		a.log.Info("Uploaded", zap.String("file", file), zap.String("dest", dest))
		outputs = append(outputs, dest)
	}
	return outputs, nil
}
