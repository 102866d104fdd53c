package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/tensorfang/pkg/safeconv"
)

const (
	metricStepsTotal    = "tensorfang.steps.total"
	metricDropsTotal    = "tensorfang.drops.total"
	metricStepDuration  = "tensorfang.step.duration.seconds"
	metricTransientSize = "tensorfang.scope.transient.bytes"

	attrStatus = "status"
	attrWorker = "worker"

	statusOK    = "ok"
	statusError = "error"
)

// stepDurationBoundaries covers 1ms to 60s; one step is one pass of the
// dataflow program, from sub-millisecond toy graphs to multi-second
// full batches.
var stepDurationBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// StepMetrics holds the OTel instruments for executor step telemetry.
type StepMetrics struct {
	stepsTotal    metric.Int64Counter
	dropsTotal    metric.Int64Counter
	stepDuration  metric.Float64Histogram
	transientSize metric.Int64Gauge
}

// NewStepMetrics creates step metric instruments from the given meter.
func NewStepMetrics(mt metric.Meter) (*StepMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &StepMetrics{
		stepsTotal:    b.counter(metricStepsTotal, "Total executor steps", "{step}"),
		dropsTotal:    b.counter(metricDropsTotal, "Total transient scope drops", "{drop}"),
		stepDuration:  b.histogram(metricStepDuration, "Step duration in seconds", "s", stepDurationBoundaries...),
		transientSize: b.gauge(metricTransientSize, "Transient scope footprint in bytes", "By"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordStep records one completed step with its duration and outcome.
// Safe to call on a nil receiver (no-op).
func (sm *StepMetrics) RecordStep(ctx context.Context, duration time.Duration, err error) {
	if sm == nil {
		return
	}

	status := statusOK
	if err != nil {
		status = statusError
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	sm.stepsTotal.Add(ctx, 1, attrs)
	sm.stepDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDrop records one transient scope reclamation.
// Safe to call on a nil receiver (no-op).
func (sm *StepMetrics) RecordDrop(ctx context.Context) {
	if sm == nil {
		return
	}

	sm.dropsTotal.Add(ctx, 1)
}

// RecordFootprint records one worker's current transient footprint.
// Safe to call on a nil receiver (no-op).
func (sm *StepMetrics) RecordFootprint(ctx context.Context, worker int, size uint64) {
	if sm == nil {
		return
	}

	sm.transientSize.Record(ctx, safeconv.SafeInt64(size),
		metric.WithAttributes(attribute.Int(attrWorker, worker)))
}
