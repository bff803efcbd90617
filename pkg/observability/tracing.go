// Package observability sets up tracing for a tap run
package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	JobID          string
	// Output receives exported spans; defaults to stderr since stdout carries
	// the message stream.
	Output io.Writer
}

// ShutdownFunc flushes and stops a tracer provider
type ShutdownFunc func(context.Context) error

// NewTracerProvider returns the provider for one run. A disabled config yields
// a no-op provider; otherwise every span is exported synchronously as JSON.
// The provider is not installed globally.
func NewTracerProvider(config TracingConfig) (trace.TracerProvider, ShutdownFunc, error) {
	if !config.Enabled {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.ServiceInstanceIDKey.String(config.JobID),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(output))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exporter),
	)

	return tp, tp.Shutdown, nil
}
