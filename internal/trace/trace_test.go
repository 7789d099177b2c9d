package trace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOtelRecorder_RecordEmitsSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	r := &otelRecorder{provider: provider, tracer: provider.Tracer("test")}

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Millisecond)
	r.Record(context.Background(), StageRetrieve, start, end,
		attribute.Int("result_count", 7))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, StageRetrieve, spans[0].Name)
	assert.True(t, spans[0].StartTime.Equal(start))
	assert.True(t, spans[0].EndTime.Equal(end))
	assert.Contains(t, spans[0].Attributes, attribute.Int("result_count", 7))

	require.NoError(t, r.Shutdown(context.Background()))
}

func TestNopRecorder(t *testing.T) {
	t.Parallel()

	r := NewNop()
	r.Record(context.Background(), StageEmbed, time.Now(), time.Now())
	assert.NoError(t, r.Shutdown(context.Background()))
}
