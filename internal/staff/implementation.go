package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/httpx"
	"gymflow/internal/logger"
)

// Deps collects the collaborators of the staff service.
type Deps struct {
	Store  Store
	Tokens *TokenIssuer
	Logger *zap.Logger
}

type service struct {
	Deps
}

// NewService creates a new staff service instance.
func NewService(d Deps) Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &service{Deps: d}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks credentials and issues a token. Unknown, inactive and
// wrong-password logins share one message.
func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required.")
	}

	invalid := apperr.Unauthorized("Invalid email or password.")
	u, cred, err := s.Store.FindByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, invalid
	}

	ok, err := cred.Matches(password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		logger.FromContext(ctx, s.Logger).Warn("Failed login", zap.String("email", email))
		return nil, invalid
	}

	token, expiresAt, err := s.Tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.Logger).Info("Staff logged in", zap.String("user_id", u.ID.String()))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u.principal()}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *service) Authenticate(ctx context.Context, token string) (*httpx.Principal, error) {
	id, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.FindByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("Token is no longer valid. Please log in again.")
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("Token is no longer valid. Please log in again.")
	}
	return u.principal(), nil
}

func (s *service) Me(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.Store.FindByID(ctx, id)
}

func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("currentPassword and newPassword are required.")
	}
	cred, err := s.Store.Credential(ctx, id)
	if err != nil {
		return err
	}
	ok, err := cred.Matches(current)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return apperr.Validation("Current password is incorrect.")
	}

	fresh, err := newCredential(next)
	if errors.Is(err, errPasswordTooShort) {
		return apperr.Validation("New password must be at least %d characters.", MinPasswordLength)
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.UpdatePassword(ctx, id, fresh); err != nil {
		return err
	}
	logger.FromContext(ctx, s.Logger).Info("Password changed", zap.String("user_id", id.String()))
	return nil
}

func (s *service) CreateStaff(ctx context.Context, in CreateInput) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("name, email, and password are required.")
	}
	switch in.Role {
	case "":
		in.Role = httpx.RoleTrainer
	case httpx.RoleOwner, httpx.RoleTrainer:
	default:
		return nil, apperr.Validation("role must be OWNER or TRAINER.")
	}

	if _, _, err := s.Store.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("A user with this email already exists.")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	cred, err := newCredential(in.Password)
	if errors.Is(err, errPasswordTooShort) {
		return nil, apperr.Validation("Password must be at least %d characters.", MinPasswordLength)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{ID: uuid.New(), Name: in.Name, Email: in.Email, Role: in.Role}
	if err := s.Store.Create(ctx, u, cred); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.Logger).Info("Staff user created",
		zap.String("user_id", u.ID.String()),
		zap.String("role", u.Role),
	)
	return u, nil
}

func (s *service) ListStaff(ctx context.Context) ([]*User, error) {
	users, err := s.Store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*User{}
	}
	return users, nil
}

func (s *service) Deactivate(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperr.Validation("You cannot deactivate your own account.")
	}
	if err := s.Store.Deactivate(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx, s.Logger).Info("Staff user deactivated",
		zap.String("user_id", id.String()),
		zap.String("by", actorID.String()),
	)
	return nil
}

// EnsureOwner creates an OWNER account when no active owner exists. It
// reports whether an account was created.
func (s *service) EnsureOwner(ctx context.Context, name, email, password string) (bool, error) {
	n, err := s.Store.CountOwners(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if email == "" || password == "" {
		s.Logger.Warn("No owner account exists and no bootstrap credentials are configured")
		return false, nil
	}
	if name == "" {
		name = "Admin Owner"
	}
	if _, err := s.CreateStaff(ctx, CreateInput{Name: name, Email: email, Password: password, Role: httpx.RoleOwner}); err != nil {
		return false, err
	}
	return true, nil
}
