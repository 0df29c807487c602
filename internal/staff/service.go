package staff

import (
	"context"

	"github.com/google/uuid"

	"gymflow/internal/httpx"
)

// Service defines the staff account operations.
type Service interface {
	httpx.Authenticator
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Me(ctx context.Context, id uuid.UUID) (*User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	CreateStaff(ctx context.Context, in CreateInput) (*User, error)
	ListStaff(ctx context.Context) ([]*User, error)
	Deactivate(ctx context.Context, actorID, id uuid.UUID) error
	EnsureOwner(ctx context.Context, name, email, password string) (bool, error)
}

// Store persists staff users.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, *Credential, error)
	Credential(ctx context.Context, id uuid.UUID) (*Credential, error)
	Create(ctx context.Context, u *User, c *Credential) error
	UpdatePassword(ctx context.Context, id uuid.UUID, c *Credential) error
	ListActive(ctx context.Context) ([]*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	CountOwners(ctx context.Context) (int, error)
}
