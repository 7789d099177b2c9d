// Package trace records retrieval pipeline stages as OpenTelemetry spans.
//
// Recording is strictly fire-and-forget: a stage that cannot be exported is
// dropped, never surfaced to the pipeline. A broken trace backend must not
// fail a query.
package trace

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Stage names recorded by the retrieval and ingestion pipelines.
const (
	StageExtract    = "pipeline.extract"
	StageChunk      = "pipeline.chunk"
	StageEmbed      = "pipeline.embed"
	StagePersist    = "pipeline.persist"
	StageRetrieve   = "pipeline.retrieve"
	StageFuse       = "pipeline.fuse"
	StageRerank     = "pipeline.rerank"
	StageSynthesize = "pipeline.synthesize"
)

// Recorder records the timing and outcome of one pipeline stage.
//
// Implementations must never return an error to the caller; export
// failures are logged and dropped.
type Recorder interface {
	// Record emits a span for stage covering [start, end). attrs carries
	// stage-specific counters such as chunk or result counts.
	Record(ctx context.Context, stage string, start, end time.Time, attrs ...attribute.KeyValue)

	// Shutdown flushes pending spans.
	Shutdown(ctx context.Context) error
}

// Config for the OTLP recorder.
type Config struct {
	// Endpoint is the host:port of the OTLP HTTP receiver.
	Endpoint    string
	ServiceName string
	Environment string
}

type otelRecorder struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

// NewOTLP creates a recorder exporting to a local OTLP HTTP receiver.
// When the exporter cannot be created the recorder degrades to a nop and
// the error is logged, not returned.
func NewOTLP(ctx context.Context, cfg Config, logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return NewNop()
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		logger.Warn("failed to build trace resource, tracing disabled", "error", err)
		return NewNop()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	logger.Debug("tracing enabled", "endpoint", endpoint, "service", cfg.ServiceName)

	return &otelRecorder{
		provider: provider,
		tracer:   provider.Tracer("recall/pipeline"),
	}
}

func (r *otelRecorder) Record(ctx context.Context, stage string, start, end time.Time, attrs ...attribute.KeyValue) {
	_, span := r.tracer.Start(ctx, stage,
		oteltrace.WithTimestamp(start),
		oteltrace.WithAttributes(attrs...),
	)
	span.End(oteltrace.WithTimestamp(end))
}

func (r *otelRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

type nopRecorder struct{}

// NewNop returns a recorder that drops everything.
func NewNop() Recorder { return nopRecorder{} }

func (nopRecorder) Record(context.Context, string, time.Time, time.Time, ...attribute.KeyValue) {}

func (nopRecorder) Shutdown(context.Context) error { return nil }
