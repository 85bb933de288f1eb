package observability

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// httpStatusClientError is the threshold for failed HTTP responses.
const httpStatusClientError = 400

// Transport is an [http.RoundTripper] creating a client span and recording
// RED metrics per outgoing request. Span names read "METHOD host".
type Transport struct {
	Base    http.RoundTripper
	Tracer  trace.Tracer
	Metrics *REDMetrics
}

// NewTransport wraps base, http.DefaultTransport when nil.
func NewTransport(base http.RoundTripper, tracer trace.Tracer, metrics *REDMetrics) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &Transport{Base: base, Tracer: tracer, Metrics: metrics}
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	op := req.Method + " " + req.URL.Host

	ctx, span := t.Tracer.Start(req.Context(), op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.Method),
			attribute.String("http.target", req.URL.Path),
		),
	)
	defer span.End()

	done := t.Metrics.TrackInflight(ctx, req.Method)
	defer done()

	out := req.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

	start := time.Now()
	resp, err := t.Base.RoundTrip(out)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.Metrics.RecordRequest(ctx, req.Method, StatusError, time.Since(start))

		return nil, fmt.Errorf("round trip: %w", err)
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	status := StatusOK
	if resp.StatusCode >= httpStatusClientError {
		status = StatusError

		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	t.Metrics.RecordRequest(ctx, req.Method, status, time.Since(start))

	return resp, nil
}
