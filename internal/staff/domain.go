// Package staff manages gym staff accounts and their access tokens.
package staff

import (
	"time"

	"github.com/google/uuid"

	"gymflow/internal/httpx"
)

// User is a staff account. Deactivated users keep their row so payments
// they collected still name them.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) principal() *httpx.Principal {
	return &httpx.Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Credential is a user's stored password hash.
type Credential struct {
	PasswordHash string
	Salt         string
}

// CreateInput is a request to add a staff user. Role defaults to TRAINER.
type CreateInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      *httpx.Principal `json:"user"`
}
