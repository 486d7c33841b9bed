// Package tracing provides OpenTelemetry-based tracing infrastructure.
// It supports stdout and OTLP exporters and provides domain-specific
// span helpers for sync passes and link merges.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the rangesync tracer.
	TracerName = "github.com/feltworks/rangesync"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	Environment  string       // Deployment environment (development, production)
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "rangesync",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// PushSpan represents an outbox push pass span.
type PushSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartPushSpan starts a span for an outbox push pass.
func (t *Tracer) StartPushSpan(ctx context.Context, pending int) (context.Context, *PushSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.push",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("sync.pending", pending),
		),
	)

	return ctx, &PushSpan{span: span, ctx: ctx}
}

// SetResults records the per-item outcomes of the pass.
func (ps *PushSpan) SetResults(pushed, purged, retained int) {
	ps.span.SetAttributes(
		attribute.Int("sync.pushed", pushed),
		attribute.Int("sync.purged", purged),
		attribute.Int("sync.retained", retained),
	)
}

// End ends the push span with success status.
func (ps *PushSpan) End() {
	ps.span.SetStatus(codes.Ok, "push pass completed")
	ps.span.End()
}

// EndWithError ends the push span with error status.
func (ps *PushSpan) EndWithError(err error) {
	ps.span.RecordError(err)
	ps.span.SetStatus(codes.Error, err.Error())
	ps.span.End()
}

// PullSpan represents a pull pass span.
type PullSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartPullSpan starts a span for a remote pull pass.
func (t *Tracer) StartPullSpan(ctx context.Context) (context.Context, *PullSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.pull",
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, &PullSpan{span: span, ctx: ctx}
}

// SetCounts records how many entities the pass folded in.
func (ps *PullSpan) SetCounts(players, sessions, skipped int) {
	ps.span.SetAttributes(
		attribute.Int("pull.players", players),
		attribute.Int("pull.sessions", sessions),
		attribute.Int("pull.skipped_pending", skipped),
	)
}

// End ends the pull span with success status.
func (ps *PullSpan) End() {
	ps.span.SetStatus(codes.Ok, "pull pass completed")
	ps.span.End()
}

// EndWithError ends the pull span with error status.
func (ps *PullSpan) EndWithError(err error) {
	ps.span.RecordError(err)
	ps.span.SetStatus(codes.Error, err.Error())
	ps.span.End()
}

// LinkSyncSpan represents a link range-merge span.
type LinkSyncSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartLinkSyncSpan starts a span for a link range merge.
func (t *Tracer) StartLinkSyncSpan(ctx context.Context, linkID string, selective bool) (context.Context, *LinkSyncSpan) {
	ctx, span := t.tracer.Start(ctx, "link.sync",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("link.id", linkID),
			attribute.Bool("link.selective", selective),
		),
	)

	return ctx, &LinkSyncSpan{span: span, ctx: ctx}
}

// SetMergeResult records the merge outcome.
func (ls *LinkSyncSpan) SetMergeResult(added, skipped int, newVersion int64) {
	ls.span.SetAttributes(
		attribute.Int("link.added", added),
		attribute.Int("link.skipped", skipped),
		attribute.Int64("link.new_version", newVersion),
	)
}

// End ends the link sync span with success status.
func (ls *LinkSyncSpan) End() {
	ls.span.SetStatus(codes.Ok, "link sync completed")
	ls.span.End()
}

// EndWithError ends the link sync span with error status.
func (ls *LinkSyncSpan) EndWithError(err error) {
	ls.span.RecordError(err)
	ls.span.SetStatus(codes.Error, err.Error())
	ls.span.End()
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}
