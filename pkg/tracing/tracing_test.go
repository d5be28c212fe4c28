package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return rec
}

func TestStartAndEnd(t *testing.T) {
	rec := withRecorder(t)

	ctx, parent := Start(context.Background(), "audit_webpage", attribute.String("url", "https://example.com"))
	_, child := Start(ctx, "browser.navigate")
	End(child, errors.New("navigation timeout of 30000 ms exceeded"))
	End(parent, nil)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	nav, call := spans[0], spans[1]
	assert.Equal(t, "browser.navigate", nav.Name())
	assert.Equal(t, codes.Error, nav.Status().Code)
	assert.Equal(t, call.SpanContext().SpanID(), nav.Parent().SpanID())
	require.Len(t, nav.Events(), 1, "error recorded as event")

	assert.Equal(t, "audit_webpage", call.Name())
	assert.Equal(t, codes.Ok, call.Status().Code)
	assert.Contains(t, call.Attributes(), attribute.String("url", "https://example.com"))
}
