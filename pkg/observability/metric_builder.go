package observability

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instruments creates the instruments of one metric set and collects every
// creation error, reported once by Err.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (in *instruments) track(name string, err error) {
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("create %s: %w", name, err))
	}
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.track(name, err)

	return c
}

func (in *instruments) seconds(name, desc string, bounds []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	in.track(name, err)

	return h
}

func (in *instruments) gauge(name, desc, unit string) metric.Int64UpDownCounter {
	g, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.track(name, err)

	return g
}

// Err joins the creation errors, nil when every instrument was created.
func (in *instruments) Err() error {
	return errors.Join(in.errs...)
}
