package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOtel_EmitsSpan(t *testing.T) {
	ctx := context.Background()

	rec := tracetest.NewSpanRecorder()

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.Empty()),
		sdktrace.WithSpanProcessor(rec),
	)
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	otel.SetTracerProvider(tp)

	tr := otel.Tracer("test")
	_, span := tr.Start(ctx, "hello")
	span.End()

	result := rec.Ended()
	expected := 1

	require.Len(t, result, expected, "expected %d ended span(s)", expected)

	expectedName := "hello"
	resultName := result[0].Name()

	assert.Equal(t, expectedName, resultName, "span name should match")
}

func TestNewOtelService_Disabled(t *testing.T) {
	cfg := NewConfig(WithOtelDisable())

	svc, err := NewOtelService(context.Background(), &cfg)
	require.NoError(t, err)

	require.NotNil(t, svc.TracerProvider())
	require.NotNil(t, svc.MeterProvider())
	require.NotNil(t, svc.LoggerProvider())

	_, span := svc.TracerProvider().Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid(), "disabled otel should produce no-op spans")
	span.End()

	svc.Shutdown(context.Background(), NewLogger(cfg))
}
