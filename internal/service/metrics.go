package service

import (
	"context"

	"delivery/internal/domain"
)

// Metrics receives dispatch and payment measurements.
type Metrics interface {
	RecordTransition(ctx context.Context, action string, changed bool)
	RecordPayment(ctx context.Context, kind string, method domain.PaymentMethod, err error)
	RecordSweep(ctx context.Context, stats SweepStats)
}

type nopMetrics struct{}

func (nopMetrics) RecordTransition(context.Context, string, bool) {}
func (nopMetrics) RecordPayment(context.Context, string, domain.PaymentMethod, error) {}
func (nopMetrics) RecordSweep(context.Context, SweepStats) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
