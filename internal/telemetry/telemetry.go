// Package telemetry wires OpenTelemetry tracing for battles, dungeon sessions
// and the snapshot store. Spans go to any OTLP/HTTP collector.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName    = "idlecrawl"
	serviceVersion = "0.1.0"
)

// Options tunes the tracer provider.
type Options struct {
	// SampleRatio is the fraction of root spans kept, 0..1. Child spans follow
	// their parent.
	SampleRatio float64
	// Attributes are added to the resource, e.g. the dungeon and seed of a run.
	Attributes []attribute.KeyValue
}

// Enabled reports whether an OTLP endpoint is configured. Without one the
// global no-op provider stays in place.
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != ""
}

// Setup registers a batching OTLP/HTTP tracer provider configured from the
// standard OTEL_* environment variables:
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector endpoint
//   - OTEL_EXPORTER_OTLP_HEADERS: extra headers such as API keys
//
// Returns a shutdown function that flushes pending spans.
func Setup(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp, err := NewProvider(ctx, sdktrace.WithBatcher(exporter), opts)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// NewProvider builds a tracer provider around the given span processor
// option, with the idlecrawl resource and a parent-based ratio sampler.
func NewProvider(ctx context.Context, processor sdktrace.TracerProviderOption, opts Options) (*sdktrace.TracerProvider, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
		attribute.String("host.name", hostname()),
		attribute.String("os.type", runtime.GOOS),
		attribute.String("process.runtime.version", runtime.Version()),
	}
	// Built without resource.Default() so the schema URLs cannot conflict.
	res, err := resource.New(ctx, resource.WithAttributes(append(attrs, opts.Attributes...)...))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	ratio := opts.SampleRatio
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("sample ratio %v outside 0..1", ratio)
	}
	return sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	), nil
}

// Tracer returns the tracer for a component, e.g. "battle" or "world".
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(serviceName + "/" + name)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
