// Package telemetry wires OpenTelemetry tracing with OTLP gRPC export.
//
// Tracing is off unless Init is called with an enabled config; until then the
// global no-op provider makes every span free.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TracerName is the instrumentation name of the extraction spans.
const TracerName = "github.com/tzl-ops/flightarchive"

// Config configures the OTLP gRPC exporter.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	Endpoint string `yaml:"endpoint"`

	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`

	// Insecure disables TLS for the gRPC connection
	Insecure bool `yaml:"insecure"`

	Headers map[string]string `yaml:"headers,omitempty"`

	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	ExportTimeout time.Duration `yaml:"export_timeout"`

	// SamplingRatio is the fraction of traces to sample (0.0 to 1.0)
	SamplingRatio float64 `yaml:"sampling_ratio"`
}

// DefaultConfig returns the default exporter configuration (disabled).
func DefaultConfig() Config {
	return Config{
		Endpoint:       "localhost:4317",
		ServiceName:    "flightarchive",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Insecure:       true,
		BatchTimeout:   5 * time.Second,
		ExportTimeout:  30 * time.Second,
		SamplingRatio:  1.0,
	}
}

// Sampler returns the sampler for the configured ratio.
func (c Config) Sampler() sdktrace.Sampler {
	switch {
	case c.SamplingRatio >= 1.0:
		return sdktrace.AlwaysSample()
	case c.SamplingRatio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(c.SamplingRatio)
	}
}

// ShutdownFunc flushes and closes the exporter.
type ShutdownFunc func(context.Context) error

var (
	initMu   sync.Mutex
	shutdown ShutdownFunc
)

// Init installs a global tracer provider exporting to cfg.Endpoint. When
// cfg.Enabled is false it does nothing and returns a no-op shutdown.
// Calling Init again returns the existing shutdown function.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	initMu.Lock()
	defer initMu.Unlock()
	if shutdown != nil {
		return shutdown, nil
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(cfg.ExportTimeout),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(cfg.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithExportTimeout(cfg.ExportTimeout),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.Sampler()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown = func(ctx context.Context) error {
		initMu.Lock()
		defer initMu.Unlock()
		shutdown = nil
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}

// Tracer returns the extraction tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span on the extraction tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
