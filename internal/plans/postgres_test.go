package plans

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymflow/internal/apperr"
	"gymflow/internal/database/dbtest"
	"gymflow/internal/eventstore"
	"gymflow/internal/membership"
)

func TestPostgresStoreCurrent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	memberID, staffID := uuid.New(), uuid.New()
	mock.ExpectQuery("FROM member_plans\\s+WHERE member_id = \\$1").
		WithArgs(memberID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "type", "title", "content", "sent_by_id", "sent_at"}).
			AddRow(uuid.NewString(), memberID.String(), "MEAL_PLAN", "Cut", "Eggs", staffID.String(), time.Now()).
			AddRow(uuid.NewString(), memberID.String(), "WORKOUT", nil, "Row 2k", nil, time.Now()))

	plans, err := store.Current(context.Background(), memberID)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, TypeMealPlan, plans[0].Type)
	assert.Equal(t, "Cut", *plans[0].Title)
	assert.Equal(t, staffID, *plans[0].SentByID)
	assert.Nil(t, plans[1].Title)
	assert.Nil(t, plans[1].SentByID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreReplaceDeletedMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectQuery("ON CONFLICT \\(member_id, type\\) DO UPDATE").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "member_plans_member_id_fkey"})

	err = store.Replace(context.Background(), &Plan{ID: uuid.New(), MemberID: uuid.New(), Type: TypeWorkout, Content: "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreIntegration(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	members := membership.NewPostgresStore(db, eventstore.NewEventStore(db), time.UTC)

	m := &membership.Member{
		ID:       uuid.New(),
		FullName: "Nimal",
		Phone:    "0771234567",
		Status:   membership.StatusActive,
		DueDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		JoinDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, members.Create(ctx, m))

	store := NewPostgresStore(db)
	first := &Plan{ID: uuid.New(), MemberID: m.ID, Type: TypeWorkout, Content: "Squats"}
	require.NoError(t, store.Replace(ctx, first))
	assert.False(t, first.SentAt.IsZero())

	title := "Week 2"
	require.NoError(t, store.Replace(ctx, &Plan{ID: uuid.New(), MemberID: m.ID, Type: TypeWorkout, Title: &title, Content: "Lunges"}))
	require.NoError(t, store.Replace(ctx, &Plan{ID: uuid.New(), MemberID: m.ID, Type: TypeMealPlan, Content: "Oats"}))

	plans, err := store.Current(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2, "one plan per type")
	assert.Equal(t, TypeMealPlan, plans[0].Type)
	assert.Equal(t, "Lunges", plans[1].Content)
	assert.Equal(t, "Week 2", *plans[1].Title)

	require.NoError(t, members.Delete(ctx, m.ID))
	plans, err = store.Current(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, plans, "plans cascade with their member")

	err = store.Replace(ctx, &Plan{ID: uuid.New(), MemberID: m.ID, Type: TypeWorkout, Content: "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
