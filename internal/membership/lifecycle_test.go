package membership_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gymflow/internal/calendar"
	"gymflow/internal/membership"
	"gymflow/internal/membership/membershiptest"
	"gymflow/internal/settings"
)

type expiryCounter struct{ total int64 }

func (c *expiryCounter) RecordExpired(_ context.Context, n int64) { c.total += n }

func TestAutoExpireUnpaidMembers(t *testing.T) {
	loc := time.UTC
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, loc) }
	clock := calendar.FixedClock(time.Date(2025, 3, 11, 9, 0, 0, 0, loc))

	seed := func() (*membershiptest.Store, []*membership.Member) {
		members := []*membership.Member{
			{FullName: "Overdue", Status: membership.StatusActive, DueDate: day(3, 10)},
			{FullName: "Due today", Status: membership.StatusActive, DueDate: day(3, 11)},
			{FullName: "Paid ahead", Status: membership.StatusActive, DueDate: day(4, 10)},
			{FullName: "Already expired", Status: membership.StatusExpired, DueDate: day(1, 10)},
		}
		store := membershiptest.NewStore(members...)
		return store, members
	}

	t.Run("disabled policy skips without writes", func(t *testing.T) {
		store, members := seed()
		ev := membership.NewEvaluator(store, settings.Static{settings.AutoExpireEnabled: "false"}, clock, loc, nil, zap.NewNop())

		result, err := ev.AutoExpireUnpaidMembers(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Equal(t, membership.StatusActive, store.Get(members[0].ID).Status)
	})

	t.Run("missing flag counts as disabled", func(t *testing.T) {
		store, _ := seed()
		ev := membership.NewEvaluator(store, settings.Static{}, clock, loc, nil, zap.NewNop())

		result, err := ev.AutoExpireUnpaidMembers(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Skipped)
	})

	t.Run("enabled policy expires exactly the overdue active members", func(t *testing.T) {
		store, members := seed()
		counter := &expiryCounter{}
		ev := membership.NewEvaluator(store, settings.Static{settings.AutoExpireEnabled: "true"}, clock, loc, counter, zap.NewNop())

		result, err := ev.AutoExpireUnpaidMembers(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Skipped)
		assert.Equal(t, int64(1), result.Expired)
		assert.Equal(t, int64(1), counter.total)

		assert.Equal(t, membership.StatusExpired, store.Get(members[0].ID).Status)
		assert.Equal(t, membership.StatusActive, store.Get(members[1].ID).Status)
		assert.Equal(t, membership.StatusActive, store.Get(members[2].ID).Status)

		again, err := ev.AutoExpireUnpaidMembers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), again.Expired)
	})
}

func TestExpireResultJSON(t *testing.T) {
	skipped, err := json.Marshal(membership.ExpireResult{Skipped: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"skipped":true}`, string(skipped))

	expired, err := json.Marshal(membership.ExpireResult{Expired: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expired":3}`, string(expired))
}
