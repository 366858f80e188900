package ingest

import (
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/tzl-ops/flightarchive/pkg/checkpoint"
	"github.com/tzl-ops/flightarchive/pkg/ingest/assemble"
	"github.com/tzl-ops/flightarchive/pkg/ingest/detect"
	ingesterrors "github.com/tzl-ops/flightarchive/pkg/ingest/errors"
	"github.com/tzl-ops/flightarchive/pkg/ingest/sources"
	"github.com/tzl-ops/flightarchive/pkg/ingest/telemetry"
	"github.com/tzl-ops/flightarchive/pkg/resilience"
)

// FallbackPolicy decides what happens to sheets classified only by fallback.
type FallbackPolicy uint8

const (
	// FallbackProcess reads fallback sheets with the Layout 3 descriptor and
	// lists them in the stats.
	FallbackProcess FallbackPolicy = iota
	// FallbackSkip treats fallback sheets like unknown ones.
	FallbackSkip
)

func (p FallbackPolicy) String() string {
	if p == FallbackSkip {
		return "skip"
	}
	return "process"
}

// ParseFallbackPolicy parses a policy name, defaulting to process.
func ParseFallbackPolicy(s string) FallbackPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "skip") {
		return FallbackSkip
	}
	return FallbackProcess
}

// Options configures a Pipeline.
type Options struct {
	// Workers bounds the number of months extracted concurrently.
	Workers int

	Assembler  assemble.Config
	OnFallback FallbackPolicy

	// ErrorPolicy controls rejected rows: skip (count only) or quarantine.
	ErrorPolicy ingesterrors.Policy
	// Quarantine receives rejected rows when ErrorPolicy is quarantine.
	Quarantine ingesterrors.Quarantine
	// MaxErrors caps the row errors kept per sheet (0 = unlimited).
	MaxErrors int

	// ReportDirs and ExcludeMarker tune archive discovery.
	ReportDirs    []string
	ExcludeMarker string

	Catalog *detect.Catalog
	Retry   resilience.RetryPolicy

	// Checkpoint caches month results keyed by workbook identity.
	Checkpoint checkpoint.Store

	Logger  *zap.Logger
	Metrics *telemetry.Metrics

	// OnMonth is called as each month finishes, from the worker goroutine.
	OnMonth func(MonthResult)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Workers:       min(runtime.NumCPU(), 4),
		Assembler:     assemble.Config{HomeAirport: assemble.DefaultHomeAirport},
		ErrorPolicy:   ingesterrors.PolicySkip,
		MaxErrors:     100,
		ReportDirs:    sources.DefaultReportDirs,
		ExcludeMarker: sources.DefaultExcludeMarker,
		Retry:         resilience.DefaultRetryPolicy(),
		Logger:        zap.NewNop(),
	}
}

// Option modifies Options.
type Option func(*Options)

// WithWorkers sets the month worker count.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithAssembler sets the home airport and round-trip policy.
func WithAssembler(cfg assemble.Config) Option {
	return func(o *Options) { o.Assembler = cfg }
}

// WithFallback sets the fallback sheet policy.
func WithFallback(p FallbackPolicy) Option {
	return func(o *Options) { o.OnFallback = p }
}

// WithQuarantine routes rejected rows to q.
func WithQuarantine(q ingesterrors.Quarantine) Option {
	return func(o *Options) {
		o.ErrorPolicy = ingesterrors.PolicyQuarantine
		o.Quarantine = q
	}
}

// WithMaxErrors caps the stored row errors per sheet.
func WithMaxErrors(n int) Option {
	return func(o *Options) { o.MaxErrors = n }
}

// WithReportDirs overrides the report sub-directories probed under a year.
func WithReportDirs(dirs ...string) Option {
	return func(o *Options) { o.ReportDirs = dirs }
}

// WithExcludeMarker overrides the summary-workbook marker.
func WithExcludeMarker(marker string) Option {
	return func(o *Options) { o.ExcludeMarker = marker }
}

// WithCheckpoint enables month result caching.
func WithCheckpoint(s checkpoint.Store) Option {
	return func(o *Options) { o.Checkpoint = s }
}

// WithRetry sets the workbook-open retry policy.
func WithRetry(p resilience.RetryPolicy) Option {
	return func(o *Options) { o.Retry = p }
}

// WithMonthCallback registers a callback for finished months.
func WithMonthCallback(fn func(MonthResult)) Option {
	return func(o *Options) { o.OnMonth = fn }
}
