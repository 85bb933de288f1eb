package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric namespaces for REDMetrics.
const (
	NamespaceGitHub = "ocaport.github"
	NamespaceMCP    = "ocaport.mcp"
)

const (
	attrOp     = "op"
	attrStatus = "status"

	// StatusOK marks a successful request.
	StatusOK = "ok"
	// StatusError marks a failed request.
	StatusError = "error"
)

// durationBucketBoundaries covers 10ms to 2min, from cached API answers to
// a full diff of a large repository.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// REDMetrics holds the Rate, Error, Duration instruments of one namespace.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates the instruments <namespace>.requests,
// <namespace>.request.duration, <namespace>.errors and <namespace>.inflight.
func NewREDMetrics(mt metric.Meter, namespace string) (*REDMetrics, error) {
	in := &instruments{meter: mt}

	red := &REDMetrics{
		requestsTotal:    in.counter(namespace+".requests", "Total number of requests", "{request}"),
		requestDuration:  in.seconds(namespace+".request.duration", "Request duration in seconds", durationBucketBoundaries),
		errorsTotal:      in.counter(namespace+".errors", "Total number of failed requests", "{error}"),
		inflightRequests: in.gauge(namespace+".inflight", "Number of in-flight requests", "{request}"),
	}

	err := in.Err()
	if err != nil {
		return nil, err
	}

	return red, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
// Safe to call on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}
