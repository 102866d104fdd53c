package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/tensorfang/internal/observability"
)

func setupStepMeter(t *testing.T) (*observability.StepMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	sm, err := observability.NewStepMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return sm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

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

func TestStepMetricsRecordStep(t *testing.T) {
	t.Parallel()

	sm, reader := setupStepMeter(t)
	ctx := context.Background()

	sm.RecordStep(ctx, 50*time.Millisecond, nil)
	sm.RecordStep(ctx, time.Second, assert.AnError)

	rm := collectMetrics(t, reader)

	steps := findMetric(rm, "tensorfang.steps.total")
	require.NotNil(t, steps, "steps counter should exist")

	sum, ok := steps.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2, "one data point per status")

	for _, dp := range sum.DataPoints {
		status, found := dp.Attributes.Value(attribute.Key("status"))
		require.True(t, found)
		assert.Contains(t, []string{"ok", "error"}, status.AsString())
		assert.Equal(t, int64(1), dp.Value)
	}

	dur := findMetric(rm, "tensorfang.step.duration.seconds")
	require.NotNil(t, dur, "duration histogram should exist")

	hist, ok := dur.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)
}

func TestStepMetricsRecordDropAndFootprint(t *testing.T) {
	t.Parallel()

	sm, reader := setupStepMeter(t)
	ctx := context.Background()

	sm.RecordDrop(ctx)
	sm.RecordDrop(ctx)
	sm.RecordFootprint(ctx, 0, 4096)

	rm := collectMetrics(t, reader)

	drops := findMetric(rm, "tensorfang.drops.total")
	require.NotNil(t, drops)

	sum, ok := drops.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	size := findMetric(rm, "tensorfang.scope.transient.bytes")
	require.NotNil(t, size)

	gauge, ok := size.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4096), gauge.DataPoints[0].Value)
}

func TestStepMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var sm *observability.StepMetrics

	ctx := context.Background()

	assert.NotPanics(t, func() {
		sm.RecordStep(ctx, time.Millisecond, nil)
		sm.RecordDrop(ctx)
		sm.RecordFootprint(ctx, 3, 1<<20)
	})
}
