package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ProbeResource exposes newResource for testing.
func ProbeResource(cfg Config) (*resource.Resource, error) {
	return newResource(context.Background(), cfg)
}

// ProbeSpans ends one root span carrying attrs on a provider built like the
// exporting one and returns what reached the exporter.
func ProbeSpans(cfg Config, attrs ...string) tracetest.SpanStubs {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(tracerOptions(cfg, resource.Empty(), sdktrace.NewSimpleSpanProcessor(exporter))...)

	_, span := tp.Tracer("test").Start(context.Background(), "probe")
	for _, key := range attrs {
		span.SetAttributes(attribute.String(key, "x"))
	}

	span.End()

	spans := exporter.GetSpans()
	_ = tp.Shutdown(context.Background())

	return spans
}

// ProbeKeep returns the attribute policy predicate logging to logger.
func ProbeKeep(logger *slog.Logger) func(string) bool {
	policy := spanAttributes
	policy.logger = logger

	return policy.keep
}
