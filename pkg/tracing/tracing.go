// Package tracing wires OpenTelemetry for tool calls.
//
// Without an OTLP endpoint the global no-op provider stays in place and spans
// cost nothing. With one, spans are batched to the collector over gRPC.
package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/duration"
)

// InstrumentationName names the tracer used across the module.
const InstrumentationName = "github.com/a11ytester/a11ytester"

// Options configures trace export.
type Options struct {
	// Endpoint is the OTLP gRPC endpoint (e.g. "localhost:4317"). Empty
	// disables export.
	Endpoint string

	// Insecure disables TLS to the collector.
	Insecure bool

	// ServiceName defaults to defaults.ToolName.
	ServiceName string

	Headers map[string]string
}

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider exporting to opts.Endpoint.
// The returned ShutdownFunc is never nil.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if opts.Endpoint == "" {
		return noopShutdown, nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	connectCtx, cancel := context.WithTimeout(ctx, duration.TelemetryConnect)
	defer cancel()

	exporter, err := otlptracegrpc.New(connectCtx, exporterOpts...)
	if err != nil {
		return noopShutdown, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	// Not merged with resource.Default to avoid schema URL conflicts.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "mcp-server"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, duration.TelemetryShutdown)
		defer cancel()
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}

// Tracer returns the module tracer from the global provider. It is looked up
// per call so a provider installed after package init is honoured.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Start opens a child span of whatever span ctx carries.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
