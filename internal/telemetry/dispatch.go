package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"delivery/internal/domain"
	"delivery/internal/service"
)

const meterName = "delivery/dispatch"

// DispatchMetrics records order transitions, payments and sweep outcomes.
type DispatchMetrics struct {
	transitions   metric.Int64Counter
	payments      metric.Int64Counter
	sweepOrders   metric.Int64Counter
	sweepDuration metric.Float64Histogram
}

var _ service.Metrics = (*DispatchMetrics)(nil)

// NewDispatchMetrics creates the instruments on mp, or on the global
// MeterProvider when mp is nil.
func NewDispatchMetrics(mp metric.MeterProvider) (*DispatchMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	transitions, err := meter.Int64Counter("dispatch.order.transitions",
		metric.WithDescription("Order lifecycle actions, by action and whether the state changed"),
	)
	if err != nil {
		return nil, err
	}

	payments, err := meter.Int64Counter("dispatch.payments",
		metric.WithDescription("Payment operations, by kind, method and outcome"),
	)
	if err != nil {
		return nil, err
	}

	sweepOrders, err := meter.Int64Counter("dispatch.sweep.orders",
		metric.WithDescription("Stale orders handled by the dispatch sweep, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	sweepDuration, err := meter.Float64Histogram("dispatch.sweep.duration",
		metric.WithDescription("Duration of one dispatch sweep"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchMetrics{
		transitions:   transitions,
		payments:      payments,
		sweepOrders:   sweepOrders,
		sweepDuration: sweepDuration,
	}, nil
}

func (m *DispatchMetrics) RecordTransition(ctx context.Context, action string, changed bool) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("changed", changed),
	))
}

func (m *DispatchMetrics) RecordPayment(ctx context.Context, kind string, method domain.PaymentMethod, err error) {
	m.payments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("method", string(method)),
		attribute.String("outcome", paymentOutcome(err)),
	))
}

func (m *DispatchMetrics) RecordSweep(ctx context.Context, stats service.SweepStats) {
	for outcome, n := range map[string]int{
		"reassigned": stats.Reassigned,
		"idled":      stats.Idled,
		"skipped":    stats.Skipped,
		"failed":     stats.Failed,
	} {
		if n > 0 {
			m.sweepOrders.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}
	m.sweepDuration.Record(ctx, stats.Elapsed.Seconds())
}

func paymentOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, service.ErrPaymentFailed), errors.Is(err, service.ErrInsufficientBalance):
		return "declined"
	default:
		return "error"
	}
}
