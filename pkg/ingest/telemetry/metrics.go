// Package telemetry exposes extraction metrics in Prometheus format.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "flightarchive"

// Metrics holds the extraction metrics on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RecordsEmitted prometheus.Counter
	RowsRejected   *prometheus.CounterVec
	FieldIssues    *prometheus.CounterVec
	Sheets         *prometheus.CounterVec
	Months         *prometheus.CounterVec
	MonthDuration  prometheus.Histogram
	WorkbookOpens  *prometheus.CounterVec
}

// NewMetrics creates the metrics on a new registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "The total number of flight records emitted",
		}),
		RowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "The total number of rejected rows by error kind",
		}, []string{"kind"}),
		FieldIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_coercion_failures_total",
			Help:      "The total number of field values that could not be coerced",
		}, []string{"field"}),
		Sheets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_total",
			Help:      "The total number of classified worksheets",
		}, []string{"layout", "outcome"}),
		Months: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "months_total",
			Help:      "The total number of months by terminal state",
		}, []string{"state"}),
		MonthDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "month_duration_seconds",
			Help:      "Time taken to extract one month",
			Buckets:   prometheus.DefBuckets,
		}),
		WorkbookOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workbook_open_attempts_total",
			Help:      "Workbook open attempts by result",
		}, []string{"result"}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AddRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsEmitted.Add(float64(n))
}

func (m *Metrics) RowRejected(kind string) {
	if m == nil {
		return
	}
	m.RowsRejected.WithLabelValues(kind).Inc()
}

func (m *Metrics) FieldIssue(field string) {
	if m == nil {
		return
	}
	m.FieldIssues.WithLabelValues(field).Inc()
}

func (m *Metrics) SheetClassified(layout, outcome string) {
	if m == nil {
		return
	}
	m.Sheets.WithLabelValues(layout, outcome).Inc()
}

func (m *Metrics) MonthFinished(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.Months.WithLabelValues(state).Inc()
	m.MonthDuration.Observe(d.Seconds())
}

func (m *Metrics) WorkbookOpen(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.WorkbookOpens.WithLabelValues(result).Inc()
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the metrics over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
