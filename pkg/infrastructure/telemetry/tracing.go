package telemetry

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	otelsemconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of pipeline spans
const TracerName = "config-collector/pipeline"

// TracingConfig selects the span exporter
type TracingConfig struct {
	ServiceName string
	// Exporter is one of none, stdout or otlp
	Exporter string
	// Endpoint is the OTLP gRPC collector address
	Endpoint string
	// Writer receives stdout spans, os.Stdout when nil
	Writer io.Writer
}

// SetupTracing installs the global tracer provider and returns its shutdown function.
// The "none" exporter keeps the default no-op provider.
func SetupTracing(ctx context.Context, config TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	exporterName := strings.ToLower(strings.TrimSpace(config.Exporter))
	if exporterName == "" || exporterName == "none" {
		return noop, nil
	}
	if config.ServiceName == "" {
		config.ServiceName = "config-collector"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			otelsemconv.SchemaURL,
			otelsemconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return noop, err
	}

	var exporter sdktrace.SpanExporter
	switch exporterName {
	case "stdout":
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if config.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(config.Writer))
		}
		exporter, err = stdouttrace.New(opts...)
	case "otlp":
		clean := strings.TrimPrefix(strings.TrimPrefix(config.Endpoint, "http://"), "https://")
		if clean == "" {
			return noop, fmt.Errorf("otlp exporter requires an endpoint")
		}
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(clean),
			otlptracegrpc.WithInsecure(),
		)
	default:
		return noop, fmt.Errorf("unknown trace exporter %q", config.Exporter)
	}
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the pipeline tracer of the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
