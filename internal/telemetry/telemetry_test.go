package telemetry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"gymflow/internal/config"
)

func TestNewTracerProviderDisabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), "gymflow", config.TelemetryConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.Enabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestBusinessMetrics(t *testing.T) {
	bm, err := NewBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		bm.RecordPayment(ctx, decimal.NewFromInt(3000))
		bm.RecordReminder(ctx, "PAYMENT_DUE", "EMAIL", "SENT")
		bm.RecordExpired(ctx, 2)
	})

	var nilMetrics *BusinessMetrics
	assert.NotPanics(t, func() {
		nilMetrics.RecordPayment(ctx, decimal.NewFromInt(1))
		nilMetrics.RecordExpired(ctx, 1)
	})
}
