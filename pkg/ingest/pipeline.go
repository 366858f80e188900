// Package ingest extracts flight records from a monthly workbook archive.
//
// A run discovers the month folders of the requested year(s), extracts each
// month on a bounded worker pool, and merges the per-month results in month
// order. Row and sheet failures never abort a run; they are counted in the
// stats. Only archive-level failures are returned as errors.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
	"github.com/tzl-ops/flightarchive/pkg/ingest/assemble"
	"github.com/tzl-ops/flightarchive/pkg/ingest/detect"
	"github.com/tzl-ops/flightarchive/pkg/ingest/sources"
	tracing "github.com/tzl-ops/flightarchive/pkg/telemetry"
)

// Request selects what to extract.
type Request struct {
	Root string
	// Year 0 means every year directory under Root.
	Year int
	// Month filters month folders: "3", "03" or a folder name. Empty means all.
	Month string
}

// Pipeline orchestrates extraction. It is safe to Run concurrently.
type Pipeline struct {
	opts       Options
	classifier *detect.Classifier
	assembler  *assemble.Assembler
	log        *zap.Logger

	// version is folded into checkpoint keys so a change of settings
	// invalidates cached months.
	version string
}

// New creates a pipeline from DefaultOptions modified by opts.
func New(opts ...Option) *Pipeline {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	return &Pipeline{
		opts:       o,
		classifier: detect.NewClassifier(o.Catalog),
		assembler:  assemble.New(o.Assembler),
		log:        o.Logger,
		version: strings.Join([]string{
			"v1",
			strings.ToUpper(o.Assembler.HomeAirport),
			o.Assembler.RoundTrip.String(),
			o.OnFallback.String(),
		}, "/"),
	}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run extracts the requested months.
//
// Errors carry a code from pkg/errors: E101 when the root is missing, E102
// when the year directory is missing, E103 when no month folder matches,
// E401 when ctx is canceled before every month finished.
func (p *Pipeline) Run(ctx context.Context, req Request) (_ *Result, err error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID))

	ctx, span := tracing.StartSpan(ctx, "ingest.run",
		attribute.String("run_id", runID),
		attribute.String("root", req.Root),
		attribute.Int("year", req.Year),
		attribute.String("month", req.Month),
	)
	defer func() { tracing.EndSpan(span, err) }()

	archive := &sources.Archive{
		Root:          req.Root,
		ReportDirs:    p.opts.ReportDirs,
		ExcludeMarker: p.opts.ExcludeMarker,
	}

	jobs, err := p.plan(archive, req, log)
	if err != nil {
		return nil, err
	}
	log.Info("Extraction started", zap.Int("months", len(jobs)), zap.Int("workers", p.opts.Workers))

	results := make([]MonthResult, len(jobs))
	scheduled := make([]bool, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		scheduled[i] = true
		g.Go(func() error {
			results[i] = p.extractMonth(gctx, archive, job)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		done := 0
		for i := range results {
			if scheduled[i] && results[i].Stats.State.Terminal() {
				done++
			}
		}
		log.Warn("Extraction canceled", zap.Int("completed_months", done), zap.Int("months", len(jobs)))
		return nil, apperrors.Canceled("extract", err)
	}

	res := &Result{RunID: runID}
	for _, mr := range results {
		res.Records = append(res.Records, mr.Records...)
		res.Stats.add(mr.Stats)
		if mr.SourceModTime.After(res.SourceModTime) {
			res.SourceModTime = mr.SourceModTime
		}
	}
	if res.Stats.ErrorCounts == nil {
		res.Stats.ErrorCounts = map[string]int{}
	}
	res.Duration = time.Since(start)

	span.SetAttributes(attribute.Int("records", len(res.Records)))
	log.Info("Extraction finished",
		zap.Int("records", len(res.Records)),
		zap.Int("processed", res.Stats.Processed),
		zap.Int("skipped", res.Stats.Skipped),
		zap.Int("errored", res.Stats.Errored),
		zap.Int("skipped_months", res.Stats.SkippedMonths),
		zap.Int("failed_months", res.Stats.FailedMonths),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// plan lists the month jobs of the request in year and month order.
func (p *Pipeline) plan(archive *sources.Archive, req Request, log *zap.Logger) ([]monthJob, error) {
	years := []int{req.Year}
	all := req.Year == 0
	if all {
		var err error
		if years, err = archive.Years(); err != nil {
			return nil, archiveError(req, err)
		}
	}

	var jobs []monthJob
	for _, year := range years {
		months, err := archive.Months(year)
		if err != nil {
			// Scanning every year tolerates years without month folders.
			if all && !errors.Is(err, sources.ErrRootMissing) {
				log.Warn("Year skipped", zap.Int("year", year), zap.Error(err))
				continue
			}
			return nil, archiveError(Request{Root: req.Root, Year: year}, err)
		}
		for _, m := range sources.FilterMonths(months, req.Month) {
			jobs = append(jobs, monthJob{root: req.Root, year: year, month: m})
		}
	}

	if len(jobs) == 0 {
		cause := sources.ErrNoMonthFolders
		if req.Month != "" {
			cause = fmt.Errorf("%w: none matches %q", sources.ErrNoMonthFolders, req.Month)
		}
		return nil, apperrors.NoMonthFolders(req.Year, cause)
	}
	return jobs, nil
}

// archiveError maps discovery errors to coded errors.
func archiveError(req Request, err error) error {
	switch {
	case errors.Is(err, sources.ErrRootMissing):
		return apperrors.ArchiveRootMissing(req.Root, err)
	case errors.Is(err, sources.ErrYearNotFound):
		return apperrors.YearNotFound(req.Root, req.Year, err)
	case errors.Is(err, sources.ErrNoMonthFolders):
		return apperrors.NoMonthFolders(req.Year, err)
	default:
		return apperrors.Wrap(err, apperrors.CodeUnknown, "archive discovery failed")
	}
}

// Extract runs a pipeline built from opts over one year (0 for all years)
// and an optional month filter.
func Extract(ctx context.Context, root string, year int, month string, opts ...Option) (*Result, error) {
	return New(opts...).Run(ctx, Request{Root: root, Year: year, Month: month})
}
