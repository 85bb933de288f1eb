package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
)

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()

	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	reader, mp := newReader()
	red, err := observability.NewREDMetrics(mp.Meter("test"), observability.NamespaceGitHub)
	require.NoError(t, err)

	ctx := context.Background()
	red.RecordRequest(ctx, "GET", observability.StatusOK, 100*time.Millisecond)
	red.RecordRequest(ctx, "POST", observability.StatusError, time.Second)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "ocaport.github.requests")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "ocaport.github.errors")))
	assert.NotNil(t, findMetric(rm, "ocaport.github.request.duration"))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	reader, mp := newReader()
	red, err := observability.NewREDMetrics(mp.Meter("test"), observability.NamespaceMCP)
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "oca_port_diff")
	assert.Equal(t, int64(1), sumOf(t, findMetric(collectMetrics(t, reader), "ocaport.mcp.inflight")))

	done()
	assert.Equal(t, int64(0), sumOf(t, findMetric(collectMetrics(t, reader), "ocaport.mcp.inflight")))
}

func TestREDMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var red *observability.REDMetrics

	red.RecordRequest(context.Background(), "GET", observability.StatusOK, time.Millisecond)
	red.TrackInflight(context.Background(), "GET")()
}
