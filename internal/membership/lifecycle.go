package membership

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gymflow/internal/calendar"
	"gymflow/internal/settings"
)

// ExpireResult reports an auto-expire run. It encodes as {"skipped":true}
// when the policy is off and {"expired":n} otherwise.
type ExpireResult struct {
	Skipped bool
	Expired int64
}

func (r ExpireResult) MarshalJSON() ([]byte, error) {
	if r.Skipped {
		return json.Marshal(map[string]bool{"skipped": true})
	}
	return json.Marshal(map[string]int64{"expired": r.Expired})
}

// ExpiryRecorder counts expired members.
type ExpiryRecorder interface {
	RecordExpired(ctx context.Context, n int64)
}

// Evaluator applies the auto-expire policy.
type Evaluator struct {
	store    Store
	settings settings.Provider
	clock    calendar.Clock
	loc      *time.Location
	metrics  ExpiryRecorder
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewEvaluator(store Store, provider settings.Provider, clock calendar.Clock, loc *time.Location, metrics ExpiryRecorder, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		store:    store,
		settings: provider,
		clock:    clock,
		loc:      loc,
		metrics:  metrics,
		logger:   logger,
		tracer:   otel.Tracer("gymflow/membership"),
	}
}

// AutoExpireUnpaidMembers expires every ACTIVE member whose due date is
// before today, when AUTO_EXPIRE_ENABLED is "true". The flag is read on
// every call. Running it twice on one day expires nobody the second time.
func (e *Evaluator) AutoExpireUnpaidMembers(ctx context.Context) (ExpireResult, error) {
	ctx, span := e.tracer.Start(ctx, "membership.auto_expire")
	defer span.End()

	enabled, err := settings.Bool(ctx, e.settings, settings.AutoExpireEnabled)
	if err != nil {
		return ExpireResult{}, err
	}
	if !enabled {
		e.logger.Info("Auto-expire disabled by settings, skipping")
		span.SetAttributes(attribute.Bool("skipped", true))
		return ExpireResult{Skipped: true}, nil
	}

	today := calendar.Today(e.clock, e.loc)
	n, err := e.store.ExpireOverdue(ctx, today)
	if err != nil {
		return ExpireResult{}, err
	}
	if e.metrics != nil {
		e.metrics.RecordExpired(ctx, n)
	}

	e.logger.Info("Auto-expire completed", zap.Int64("expired", n), zap.String("before", calendar.Format(today)))
	span.SetAttributes(attribute.Int64("expired", n))
	return ExpireResult{Expired: n}, nil
}
