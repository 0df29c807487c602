package staff

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
	"gymflow/internal/httpx"
)

func TestPostgresStoreCreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectQuery("INSERT INTO staff_users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "staff_users_email_key"})

	err = store.Create(context.Background(), &User{ID: uuid.New(), Email: "a@gym.lk", Role: httpx.RoleTrainer}, &Credential{})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, name, email, role, is_active, created_at, password_hash, salt FROM staff_users WHERE email = \\$1").
		WithArgs("owner@gym.lk").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "is_active", "created_at", "password_hash", "salt"}).
			AddRow(id.String(), "Owner", "owner@gym.lk", "OWNER", true, time.Now(), "h", "s"))
	mock.ExpectQuery("FROM staff_users WHERE email = \\$1").
		WithArgs("ghost@gym.lk").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, cred, err := store.FindByEmail(context.Background(), "owner@gym.lk")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.IsActive)
	assert.Equal(t, "h", cred.PasswordHash)

	_, _, err = store.FindByEmail(context.Background(), "ghost@gym.lk")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDeactivateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	id := uuid.New()
	mock.ExpectExec("UPDATE staff_users SET is_active = FALSE").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Deactivate(context.Background(), id)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreIntegration(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	store := NewPostgresStore(db)

	owner := &User{ID: uuid.New(), Name: "Owner", Email: "owner@gym.lk", Role: httpx.RoleOwner}
	require.NoError(t, store.Create(ctx, owner, &Credential{PasswordHash: "h", Salt: "s"}))
	assert.True(t, owner.IsActive)
	assert.False(t, owner.CreatedAt.IsZero())

	err := store.Create(ctx, &User{ID: uuid.New(), Name: "Dup", Email: "owner@gym.lk", Role: httpx.RoleTrainer}, &Credential{PasswordHash: "h", Salt: "s"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	n, err := store.CountOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.UpdatePassword(ctx, owner.ID, &Credential{PasswordHash: "h2", Salt: "s2"}))
	cred, err := store.Credential(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", cred.PasswordHash)

	require.NoError(t, store.Deactivate(ctx, owner.ID))
	users, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	u, err := store.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
}
