package staff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gymflow/internal/apperr"
	"gymflow/internal/config"
	"gymflow/internal/httpx"
)

func newTestService(t *testing.T) (Service, *memStore) {
	t.Helper()
	store := newMemStore()
	tokens := NewTokenIssuer(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "gymflow"})
	return NewService(Deps{Store: store, Tokens: tokens, Logger: zap.NewNop()}), store
}

func mustCreate(t *testing.T, svc Service, in CreateInput) *User {
	t.Helper()
	u, err := svc.CreateStaff(context.Background(), in)
	require.NoError(t, err)
	return u
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := mustCreate(t, svc, CreateInput{Name: "Owner", Email: "Owner@Gym.lk", Password: "Admin@1234", Role: httpx.RoleOwner})
	assert.Equal(t, "owner@gym.lk", owner.Email)

	result, err := svc.Login(ctx, "  OWNER@gym.lk ", "Admin@1234")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, owner.ID, result.User.ID)
	assert.Equal(t, httpx.RoleOwner, result.User.Role)

	p, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, p.ID)

	for _, tc := range []struct{ email, password string }{
		{"owner@gym.lk", "wrong-password"},
		{"nobody@gym.lk", "Admin@1234"},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		require.Error(t, err)
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
		assert.Equal(t, "Invalid email or password.", apperr.Message(err))
	}

	_, err = svc.Login(ctx, "", "x")
	assert.Equal(t, "Email and password are required.", apperr.Message(err))
}

func TestLoginLogsFailedAttempt(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newMemStore()
	tokens := NewTokenIssuer(config.JWTConfig{Secret: "s", Expiration: time.Hour, Issuer: "gymflow"})
	svc := NewService(Deps{Store: store, Tokens: tokens, Logger: zap.New(core)})
	mustCreate(t, svc, CreateInput{Name: "T", Email: "t@gym.lk", Password: "password1"})

	_, err := svc.Login(context.Background(), "t@gym.lk", "password2")
	require.Error(t, err)
	require.Equal(t, 1, logs.FilterMessage("Failed login").Len())
	assert.Equal(t, "t@gym.lk", logs.FilterMessage("Failed login").All()[0].ContextMap()["email"])
}

func TestDeactivatedUserLosesAccess(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := mustCreate(t, svc, CreateInput{Name: "Owner", Email: "owner@gym.lk", Password: "Admin@1234", Role: httpx.RoleOwner})
	trainer := mustCreate(t, svc, CreateInput{Name: "Kasun", Email: "kasun@gym.lk", Password: "trainer123"})
	assert.Equal(t, httpx.RoleTrainer, trainer.Role)

	login, err := svc.Login(ctx, "kasun@gym.lk", "trainer123")
	require.NoError(t, err)

	err = svc.Deactivate(ctx, owner.ID, owner.ID)
	assert.Equal(t, "You cannot deactivate your own account.", apperr.Message(err))

	require.NoError(t, svc.Deactivate(ctx, owner.ID, trainer.ID))

	_, err = svc.Authenticate(ctx, login.Token)
	assert.Equal(t, "Token is no longer valid. Please log in again.", apperr.Message(err))

	_, err = svc.Login(ctx, "kasun@gym.lk", "trainer123")
	assert.Equal(t, "Invalid email or password.", apperr.Message(err))

	staff, err := svc.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, owner.ID, staff[0].ID)

	err = svc.Deactivate(ctx, owner.ID, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateStaffValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateInput{Name: "Owner", Email: "owner@gym.lk", Password: "Admin@1234", Role: httpx.RoleOwner})

	tests := []struct {
		name string
		in   CreateInput
		kind apperr.Kind
		msg  string
	}{
		{"missing name", CreateInput{Email: "a@gym.lk", Password: "password1"}, apperr.KindValidation, "name, email, and password are required."},
		{"short password", CreateInput{Name: "A", Email: "a@gym.lk", Password: "short"}, apperr.KindValidation, "Password must be at least 8 characters."},
		{"bad role", CreateInput{Name: "A", Email: "a@gym.lk", Password: "password1", Role: "ADMIN"}, apperr.KindValidation, "role must be OWNER or TRAINER."},
		{"duplicate email", CreateInput{Name: "B", Email: " OWNER@gym.lk", Password: "password1"}, apperr.KindConflict, "A user with this email already exists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateStaff(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.msg, apperr.Message(err))
		})
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u := mustCreate(t, svc, CreateInput{Name: "Kasun", Email: "kasun@gym.lk", Password: "trainer123"})

	err := svc.ChangePassword(ctx, u.ID, "", "newpass123")
	assert.Equal(t, "currentPassword and newPassword are required.", apperr.Message(err))

	err = svc.ChangePassword(ctx, u.ID, "wrong", "newpass123")
	assert.Equal(t, "Current password is incorrect.", apperr.Message(err))

	err = svc.ChangePassword(ctx, u.ID, "trainer123", "short")
	assert.Equal(t, "New password must be at least 8 characters.", apperr.Message(err))

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "trainer123", "newpass123"))
	_, err = svc.Login(ctx, "kasun@gym.lk", "trainer123")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "kasun@gym.lk", "newpass123")
	assert.NoError(t, err)
}

func TestListStaffOrderedByCreation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.ListStaff(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	a := mustCreate(t, svc, CreateInput{Name: "A", Email: "a@gym.lk", Password: "password1"})
	b := mustCreate(t, svc, CreateInput{Name: "B", Email: "b@gym.lk", Password: "password1"})

	staff, err := svc.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, a.ID, staff[0].ID)
	assert.Equal(t, b.ID, staff[1].ID)
}

func TestEnsureOwner(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.EnsureOwner(ctx, "", "", "")
	require.NoError(t, err)
	assert.False(t, created, "no credentials configured")

	created, err = svc.EnsureOwner(ctx, "", "Admin@FocusFitness.lk", "Admin@1234")
	require.NoError(t, err)
	assert.True(t, created)

	_, cred, err := store.FindByEmail(ctx, "admin@focusfitness.lk")
	require.NoError(t, err)
	assert.NotEmpty(t, cred.PasswordHash)

	created, err = svc.EnsureOwner(ctx, "", "second@gym.lk", "Admin@1234")
	require.NoError(t, err)
	assert.False(t, created, "an owner already exists")
}
