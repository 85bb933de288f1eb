package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName = "ocaport"

	attrAppMode = "app.mode"
)

// Providers holds the initialized observability providers.
type Providers struct {
	// Tracer is the named tracer for creating spans.
	Tracer trace.Tracer

	// Meter is the named meter for creating instruments.
	Meter metric.Meter

	// Logger writes to stderr; stdout belongs to the console or the MCP transport.
	Logger *slog.Logger

	// Registry gathers the metrics when Config.Prometheus is set, nil otherwise.
	Registry *prometheus.Registry

	// Shutdown flushes pending telemetry. Calls after the first return the
	// first result.
	Shutdown func(ctx context.Context) error
}

// teardown runs shutdown hooks in reverse registration order.
type teardown []func(context.Context) error

func (t teardown) run(ctx context.Context) error {
	var errs []error

	for _, hook := range slices.Backward(t) {
		errs = append(errs, hook(ctx))
	}

	return errors.Join(errs...)
}

// Init installs the global tracer and meter providers and builds the logger.
// Spans are exported only with an OTLP endpoint; metrics go to OTLP and to a
// Prometheus registry when either is configured. Otherwise the providers are
// no-ops.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return Providers{}, err
	}

	var hooks teardown

	tp, err := newTracerProvider(ctx, cfg, res, &hooks)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	mp, registry, err := newMeterProvider(ctx, cfg, res, &hooks)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), hooks.run(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	timeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultShutdownTimeoutSec * time.Second
	}

	var (
		once        sync.Once
		shutdownErr error
	)

	shutdown := func(ctx context.Context) error {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			shutdownErr = hooks.run(ctx)
		})

		return shutdownErr
	}

	return Providers{
		Tracer:   tp.Tracer(instrumentationName),
		Meter:    mp.Meter(instrumentationName),
		Logger:   NewLogger(os.Stderr, cfg),
		Registry: registry,
		Shutdown: shutdown,
	}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String(attrAppMode, string(cfg.Mode)))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

// tracerOptions wraps processor in the attribute filter. The sampler is set
// only for a configured ratio, so OTEL_TRACES_SAMPLER applies otherwise.
func tracerOptions(cfg Config, res *resource.Resource, processor sdktrace.SpanProcessor) []sdktrace.TracerProviderOption {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(NewAttributeFilter(processor, nil)),
		sdktrace.WithResource(res),
	}

	if cfg.SampleRatio > 0 {
		opts = append(opts, sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))))
	}

	return opts
}

func newTracerProvider(
	ctx context.Context, cfg Config, res *resource.Resource, hooks *teardown,
) (trace.TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return nooptrace.NewTracerProvider(), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.OTLPHeaders))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(tracerOptions(cfg, res, sdktrace.NewBatchSpanProcessor(exporter))...)
	*hooks = append(*hooks, tp.Shutdown)

	return tp, nil
}

func newMeterProvider(
	ctx context.Context, cfg Config, res *resource.Resource, hooks *teardown,
) (metric.MeterProvider, *prometheus.Registry, error) {
	var (
		readers  []sdkmetric.Reader
		registry *prometheus.Registry
	)

	if cfg.Prometheus {
		registry = prometheus.NewRegistry()

		reader, err := promexporter.New(promexporter.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		readers = append(readers, reader)
	}

	if cfg.OTLPEndpoint != "" {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}

		if len(cfg.OTLPHeaders) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders))
		}

		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}

		readers = append(readers, sdkmetric.NewPeriodicReader(exporter))
	}

	if len(readers) == 0 {
		return noopmetric.NewMeterProvider(), nil, nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	*hooks = append(*hooks, mp.Shutdown)

	return mp, registry, nil
}

// ParseOTLPHeaders parses "key=value,key=value" as found in
// OTEL_EXPORTER_OTLP_HEADERS. Pairs without "=" are skipped; nil is returned
// when nothing remains.
func ParseOTLPHeaders(raw string) map[string]string {
	var headers map[string]string

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		if headers == nil {
			headers = make(map[string]string)
		}

		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return headers
}
