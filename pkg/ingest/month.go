package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tzl-ops/flightarchive/internal/model"
	"github.com/tzl-ops/flightarchive/pkg/checkpoint"
	"github.com/tzl-ops/flightarchive/pkg/index"
	"github.com/tzl-ops/flightarchive/pkg/ingest/assemble"
	"github.com/tzl-ops/flightarchive/pkg/ingest/dates"
	"github.com/tzl-ops/flightarchive/pkg/ingest/detect"
	ingesterrors "github.com/tzl-ops/flightarchive/pkg/ingest/errors"
	"github.com/tzl-ops/flightarchive/pkg/ingest/extract"
	"github.com/tzl-ops/flightarchive/pkg/ingest/sources"
	"github.com/tzl-ops/flightarchive/pkg/resilience"
	tracing "github.com/tzl-ops/flightarchive/pkg/telemetry"
)

// Sheet outcomes beyond the classifier's own.
const (
	outcomeFallback   = "fallback"
	outcomeUnknown    = "unknown"
	outcomeEmpty      = "empty"
	outcomeUnreadable = "unreadable"
)

var errFallbackSkipped = errors.New("fallback layout not accepted")

// monthJob is one unit of work: a month folder of a given year.
type monthJob struct {
	root  string
	year  int
	month sources.Month
}

// extractMonth runs the month state machine. It never returns an error:
// failures end in the skipped or failed state and are reported in the stats.
func (p *Pipeline) extractMonth(ctx context.Context, archive *sources.Archive, job monthJob) (res MonthResult) {
	start := time.Now()
	res.Stats = MonthStats{
		Year:   job.year,
		Month:  job.month.Number,
		Folder: job.month.Folder,
		State:  StatePending,
	}
	log := p.log.With(zap.Int("year", job.year), zap.String("month", job.month.Folder))

	ctx, span := tracing.StartSpan(ctx, "ingest.month",
		attribute.Int("year", job.year),
		attribute.String("month", job.month.Folder),
	)
	defer func() {
		res.Duration = time.Since(start)
		span.SetAttributes(
			attribute.String("state", string(res.Stats.State)),
			attribute.Int("records", res.Stats.Records),
		)
		tracing.EndSpan(span, nil)
		p.opts.Metrics.MonthFinished(string(res.Stats.State), res.Duration)
		if p.opts.OnMonth != nil {
			p.opts.OnMonth(res)
		}
	}()

	path, err := archive.SelectWorkbook(job.month)
	if err != nil {
		res.Stats.State = StateSkipped
		res.Stats.Reason = "no workbook found"
		log.Warn("Month skipped", zap.Error(err))
		return res
	}
	res.Stats.State = StateFileLocated
	res.Stats.Workbook = filepath.Base(path)

	key := p.checkpointKey(path)
	if cached, ok := p.loadCheckpoint(ctx, key, log); ok {
		return cached
	}

	var wb *sources.Workbook
	retry := p.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, err error) {
			log.Warn("Retrying workbook open", zap.String("workbook", path), zap.Int("attempt", attempt), zap.Error(err))
		}
	}
	err = resilience.Retry(ctx, retry, func() error {
		var openErr error
		wb, openErr = sources.OpenWorkbook(path)
		return openErr
	})
	p.opts.Metrics.WorkbookOpen(err == nil)
	if err != nil {
		res.Stats.State = StateFailed
		res.Stats.Reason = err.Error()
		res.Stats.Sheets = []SheetStats{{
			Name:        filepath.Base(path),
			Outcome:     outcomeUnreadable,
			Reason:      err.Error(),
			ErrorCounts: map[string]int{ingesterrors.KindWorkbookOpen.String(): 1},
		}}
		log.Error("Workbook open failed", zap.String("workbook", path), zap.Error(err))
		return res
	}
	res.Stats.State = StateWorkbookOpened
	res.SourceModTime = wb.ModTime

	file := path
	if rel, err := filepath.Rel(job.root, path); err == nil {
		file = filepath.ToSlash(rel)
	}

	for _, sheet := range wb.Sheets() {
		if ctx.Err() != nil {
			break
		}
		st, records, rejected := p.extractSheet(ctx, wb, job, file, sheet, log)
		res.Stats.Sheets = append(res.Stats.Sheets, st)
		res.Stats.Counts.add(st.Counts)
		res.Records = append(res.Records, records...)
		res.Rejected = append(res.Rejected, rejected...)
	}
	if ctx.Err() == nil {
		res.Stats.State = StateSheetsProcessed
	}

	if err := wb.Close(); err != nil {
		log.Warn("Workbook close failed", zap.Error(err))
	}
	if ctx.Err() != nil {
		res.Stats.Reason = "canceled"
		return res
	}
	res.Stats.State = StateWorkbookClosed
	res.Stats.Records = len(res.Records)

	coverage := index.NewDayCoverage(job.year, time.Month(job.month.Number))
	coverage.AddRecords(res.Records)
	res.Stats.DaysCovered = coverage.Covered()
	res.Stats.DaysMissing = coverage.Missing()

	p.saveCheckpoint(ctx, key, res, log)

	log.Info("Month extracted",
		zap.String("workbook", res.Stats.Workbook),
		zap.Int("records", res.Stats.Records),
		zap.Int("errored", res.Stats.Errored),
		zap.Int("skipped", res.Stats.Skipped),
	)
	return res
}

// extractSheet classifies one worksheet and assembles its rows. Row 1 is the
// header; data rows with a blank first cell are ignored. rejected is only
// collected when checkpointing.
func (p *Pipeline) extractSheet(ctx context.Context, wb *sources.Workbook, job monthJob, file, sheet string, log *zap.Logger) (st SheetStats, records []model.FlightRecord, rejected []ingesterrors.Entry) {
	st = SheetStats{Name: sheet}
	log = log.With(zap.String("sheet", sheet))

	_, span := tracing.StartSpan(ctx, "ingest.sheet", attribute.String("sheet", sheet))
	defer func() {
		span.SetAttributes(
			attribute.Int("layout", st.Layout),
			attribute.String("outcome", st.Outcome),
			attribute.Int("records", st.Records),
		)
		tracing.EndSpan(span, nil)
	}()

	rows, err := wb.Rows(sheet)
	if err != nil {
		st.Outcome = outcomeUnreadable
		st.Reason = err.Error()
		log.Warn("Sheet unreadable", zap.Error(err))
		return st, nil, nil
	}
	if len(rows) == 0 {
		st.Outcome = outcomeEmpty
		return st, nil, nil
	}

	handler := ingesterrors.NewHandler(p.opts.ErrorPolicy, p.opts.MaxErrors)
	if p.opts.Quarantine != nil {
		handler.SetQuarantine(p.opts.Quarantine)
	}
	keep := p.opts.Checkpoint != nil
	handler.OnError(func(e *ingesterrors.RowError) {
		if e.Kind.Rejects() {
			p.opts.Metrics.RowRejected(e.Kind.String())
		}
		if keep {
			rejected = append(rejected, e.Entry())
		}
	})
	defer func() {
		st.ErrorCounts = handler.Counts()
		for _, e := range handler.Errors() {
			st.Errors = append(st.Errors, e.Entry())
		}
	}()

	cls := p.classifier.Classify(rows[0])
	st.Layout = cls.Descriptor.Layout.ID()
	st.Outcome = cls.Outcome.String()
	st.Reason = cls.Reason
	p.opts.Metrics.SheetClassified(cls.Descriptor.Layout.String(), st.Outcome)

	data := rows[1:]
	if !cls.Usable() || (cls.Outcome == detect.Fallback && p.opts.OnFallback == FallbackSkip) {
		st.Skipped = countDataRows(data)
		cause := errors.New(cls.Reason)
		if cls.Usable() {
			cause = errFallbackSkipped
		}
		handler.Handle(&ingesterrors.RowError{
			Kind:  ingesterrors.KindFormatDetection,
			File:  file,
			Sheet: sheet,
			Row:   1,
			Err:   cause,
		})
		log.Warn("Sheet skipped", zap.String("outcome", st.Outcome), zap.String("reason", cls.Reason), zap.Int("rows", st.Skipped))
		return st, nil, rejected
	}
	if cls.Outcome == detect.Fallback {
		log.Warn("Sheet read with fallback layout", zap.String("layout", cls.Descriptor.Layout.String()))
	}

	guard := resilience.NewRowGuard()
	guard.OnPanic = func(row int, v any) {
		log.Error("Row panicked", zap.Int("row", row), zap.Any("value", v))
	}

	for i, row := range data {
		first, _ := row.At(0)
		if first.IsBlank() {
			continue
		}
		rowNum := i + 2
		prov := model.Provenance{SourceFile: file, Sheet: sheet, Row: rowNum, Layout: st.Layout}

		var out []model.FlightRecord
		err := guard.Do(rowNum, func() error {
			var issues []extract.FieldIssue
			var err error
			out, issues, err = p.assembleRow(row, cls.Descriptor, job, prov)
			for _, is := range issues {
				st.FieldIssues++
				p.opts.Metrics.FieldIssue(is.Field.String())
				handler.Handle(&ingesterrors.RowError{
					Kind:   ingesterrors.KindFieldCoercion,
					File:   file,
					Sheet:  sheet,
					Row:    rowNum,
					Column: is.Field.String(),
					Value:  is.Value,
					Err:    is.Err,
				})
			}
			return err
		})
		if err != nil {
			var rowErr *ingesterrors.RowError
			if !errors.As(err, &rowErr) {
				rowErr = &ingesterrors.RowError{Kind: ingesterrors.KindRowPanic, File: file, Sheet: sheet, Row: rowNum, Err: err}
			}
			handler.Handle(rowErr)
			log.Debug("Row rejected", zap.Int("row", rowNum), zap.Error(rowErr))
			continue
		}
		records = append(records, out...)
	}

	gs := guard.Stats()
	st.Processed = int(gs.Processed)
	st.Errored = int(gs.Failed)
	st.Records = len(records)
	p.opts.Metrics.AddRecords(len(records))
	if gs.Panics > 0 {
		log.Warn("Rows recovered from panic", zap.Int64("panics", gs.Panics))
	}
	return st, records, rejected
}

// assembleRow turns one data row into records.
func (p *Pipeline) assembleRow(row model.Row, d detect.Descriptor, job monthJob, prov model.Provenance) ([]model.FlightRecord, []extract.FieldIssue, error) {
	fields, issues := extract.Fields(row, d)

	date, err := dates.Resolve(job.year, job.month.Folder, prov.Sheet, fields.Date)
	if err != nil {
		return nil, issues, &ingesterrors.RowError{
			Kind:   ingesterrors.KindDateReconciliation,
			File:   prov.SourceFile,
			Sheet:  prov.Sheet,
			Row:    prov.Row,
			Column: detect.FieldDate.String(),
			Value:  fields.Date.Trimmed(),
			Err:    err,
		}
	}

	records, err := p.assembler.Assemble(assemble.Input{Fields: fields, Date: date, Provenance: prov})
	return records, issues, err
}

func countDataRows(rows []model.Row) int {
	n := 0
	for _, row := range rows {
		if first, _ := row.At(0); !first.IsBlank() {
			n++
		}
	}
	return n
}

// checkpointKey returns "" when checkpointing is off or the file cannot be
// stat'ed.
func (p *Pipeline) checkpointKey(path string) string {
	if p.opts.Checkpoint == nil {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return checkpoint.Key(path, info.Size(), info.ModTime(), p.version)
}

func (p *Pipeline) loadCheckpoint(ctx context.Context, key string, log *zap.Logger) (MonthResult, bool) {
	if key == "" {
		return MonthResult{}, false
	}
	data, err := p.opts.Checkpoint.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			log.Warn("Checkpoint read failed", zap.String("backend", p.opts.Checkpoint.Name()), zap.Error(err))
		}
		return MonthResult{}, false
	}

	var res MonthResult
	if err := json.Unmarshal(data, &res); err != nil {
		log.Warn("Checkpoint corrupt, re-extracting", zap.Error(err))
		return MonthResult{}, false
	}
	res.Stats.Cached = true
	p.opts.Metrics.AddRecords(len(res.Records))
	p.replayRejected(res.Rejected)
	log.Info("Month restored from checkpoint", zap.Int("records", len(res.Records)), zap.Int("rejected", len(res.Rejected)))
	return res, true
}

// replayRejected sends the row errors of a restored month through the same
// metrics and quarantine a fresh extraction would.
func (p *Pipeline) replayRejected(entries []ingesterrors.Entry) {
	quarantine := p.opts.ErrorPolicy == ingesterrors.PolicyQuarantine && p.opts.Quarantine != nil
	for _, e := range entries {
		rowErr := e.RowError()
		if rowErr.Kind.Rejects() {
			p.opts.Metrics.RowRejected(rowErr.Kind.String())
		} else {
			p.opts.Metrics.FieldIssue(rowErr.Column)
		}
		if quarantine {
			p.opts.Quarantine.Add(rowErr)
		}
	}
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, key string, res MonthResult, log *zap.Logger) {
	if key == "" {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		log.Warn("Checkpoint encode failed", zap.Error(err))
		return
	}
	if err := p.opts.Checkpoint.Put(ctx, key, data); err != nil {
		log.Warn("Checkpoint write failed", zap.String("backend", p.opts.Checkpoint.Name()), zap.Error(err))
	}
}
