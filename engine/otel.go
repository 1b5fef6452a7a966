package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zero-day-ai/webstrike/state"
	"github.com/zero-day-ai/webstrike/strategy"
)

// otelMetrics holds the metric instruments for the orchestration loop.
// Created once at engine construction and reused for every scan.
type otelMetrics struct {
	// dispatchCounter increments once per dispatched operation.
	dispatchCounter metric.Int64Counter

	// outcomeCounter increments per operation, labelled by outcome.
	outcomeCounter metric.Int64Counter

	// durationHistogram records dispatch wall-clock time in milliseconds.
	durationHistogram metric.Float64Histogram
}

// initMetrics creates the metric instruments. Returns nil when no meter is
// configured; callers skip recording in that case.
func (e *Engine) initMetrics() (*otelMetrics, error) {
	if e.meter == nil {
		return nil, nil
	}

	m := &otelMetrics{}
	var err error

	m.dispatchCounter, err = e.meter.Int64Counter(
		"scan.dispatch.count",
		metric.WithDescription("Number of operations dispatched"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dispatch counter: %w", err)
	}

	m.outcomeCounter, err = e.meter.Int64Counter(
		"scan.outcome.count",
		metric.WithDescription("Operation results by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outcome counter: %w", err)
	}

	m.durationHistogram, err = e.meter.Float64Histogram(
		"scan.dispatch.duration",
		metric.WithDescription("Operation dispatch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return m, nil
}

// countOutcome records dispatch metrics. Silently skips when metrics are not
// configured; observability never breaks a scan.
func (e *Engine) countOutcome(ctx context.Context, entry strategy.PlanEntry, rec state.Record) {
	if e.metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", rec.Operation),
		attribute.String("phase", entry.Phase),
		attribute.String("outcome", string(rec.Outcome)),
	)
	e.metrics.dispatchCounter.Add(ctx, 1, attrs)
	e.metrics.outcomeCounter.Add(ctx, 1, attrs)
	e.metrics.durationHistogram.Record(ctx, float64(rec.Duration.Milliseconds()), attrs)
}
