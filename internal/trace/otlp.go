// Package trace exports run and iteration spans to an OTLP endpoint. Tracing
// is opt-in: when OTEL_EXPORTER_OTLP_ENDPOINT is unset the Tracer is nil and
// every method is a no-op, so the engine carries no conditional logic.
package trace

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OTLP tracer provider. A nil *Tracer is valid and inert.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

// New creates an OTLP tracer if OTEL_EXPORTER_OTLP_ENDPOINT is set. Returns
// (nil, nil) when the endpoint is not configured.
func New(ctx context.Context) (*Tracer, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "ralphloop"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer("ralphloop/loop"),
	}, nil
}

// Shutdown flushes pending spans. Safe on a nil Tracer.
func (t *Tracer) Shutdown(ctx context.Context) {
	if t == nil {
		return
	}
	_ = t.provider.Shutdown(ctx)
}

// Attr is one span attribute.
type Attr struct {
	Key   string
	Value string
}

// Start opens a span named name under any span already in ctx. The returned
// context carries the new span; end completes it with the given attributes.
// Safe on a nil Tracer: the context is returned unchanged and end records the
// attributes nowhere.
func (t *Tracer) Start(ctx context.Context, name string) (context.Context, func(attrs ...Attr)) {
	if t == nil {
		return ctx, func(...Attr) {}
	}
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, func(attrs ...Attr) {
		for _, a := range attrs {
			span.SetAttributes(attribute.String(a.Key, a.Value))
		}
		span.End()
	}
}
