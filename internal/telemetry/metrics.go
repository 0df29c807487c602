package telemetry

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics holds the gym's business counters.
type BusinessMetrics struct {
	paymentsRecorded metric.Int64Counter
	paymentAmount    metric.Float64Counter
	reminders        metric.Int64Counter
	membersExpired   metric.Int64Counter
}

// NewBusinessMetrics registers counters on meter. A nil meter uses the
// global meter provider.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		meter = otel.Meter("gymflow")
	}

	bm := &BusinessMetrics{}
	var err error

	if bm.paymentsRecorded, err = meter.Int64Counter("gym_payments_recorded_total",
		metric.WithDescription("Payments recorded"),
	); err != nil {
		return nil, fmt.Errorf("create payments counter: %w", err)
	}
	if bm.paymentAmount, err = meter.Float64Counter("gym_payment_amount_total",
		metric.WithDescription("Sum of recorded payment amounts"),
	); err != nil {
		return nil, fmt.Errorf("create amount counter: %w", err)
	}
	if bm.reminders, err = meter.Int64Counter("gym_reminders_total",
		metric.WithDescription("Reminder attempts by type, channel and status"),
	); err != nil {
		return nil, fmt.Errorf("create reminders counter: %w", err)
	}
	if bm.membersExpired, err = meter.Int64Counter("gym_members_expired_total",
		metric.WithDescription("Members flipped to EXPIRED by auto-expire"),
	); err != nil {
		return nil, fmt.Errorf("create expired counter: %w", err)
	}
	return bm, nil
}

// RecordPayment counts one recorded payment and its amount.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, amount decimal.Decimal) {
	if bm == nil {
		return
	}
	bm.paymentsRecorded.Add(ctx, 1)
	bm.paymentAmount.Add(ctx, amount.InexactFloat64())
}

// RecordReminder counts one reminder attempt.
func (bm *BusinessMetrics) RecordReminder(ctx context.Context, reminderType, channel, status string) {
	if bm == nil {
		return
	}
	bm.reminders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", reminderType),
		attribute.String("channel", channel),
		attribute.String("status", status),
	))
}

// RecordExpired counts members expired in one run.
func (bm *BusinessMetrics) RecordExpired(ctx context.Context, n int64) {
	if bm == nil || n == 0 {
		return
	}
	bm.membersExpired.Add(ctx, n)
}
