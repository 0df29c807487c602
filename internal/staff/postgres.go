package staff

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gymflow/internal/apperr"
	"gymflow/internal/database"
)

const userColumns = `id, name, email, role, is_active, created_at`

type postgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a staff Store over db.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db, tracer: otel.Tracer("gymflow/staff")}
}

func scanUser(row interface{ Scan(...any) error }, extra ...any) (*User, error) {
	u := &User{}
	dest := append([]any{&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *postgresStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM staff_users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Staff user not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return u, nil
}

func (s *postgresStore) FindByEmail(ctx context.Context, email string) (*User, *Credential, error) {
	c := &Credential{}
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash, salt FROM staff_users WHERE email = $1`, email),
		&c.PasswordHash, &c.Salt)
	if err == sql.ErrNoRows {
		return nil, nil, apperr.NotFound("Staff user not found.")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get staff user by email: %w", err)
	}
	return u, c, nil
}

func (s *postgresStore) Credential(ctx context.Context, id uuid.UUID) (*Credential, error) {
	c := &Credential{}
	err := s.db.QueryRowContext(ctx, `SELECT password_hash, salt FROM staff_users WHERE id = $1`, id).
		Scan(&c.PasswordHash, &c.Salt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Staff user not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return c, nil
}

func (s *postgresStore) Create(ctx context.Context, u *User, c *Credential) error {
	ctx, span := s.tracer.Start(ctx, "staff.create")
	defer span.End()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO staff_users (id, name, email, password_hash, salt, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING is_active, created_at
	`, u.ID, u.Name, u.Email, c.PasswordHash, c.Salt, u.Role).Scan(&u.IsActive, &u.CreatedAt)
	if _, ok := database.UniqueViolation(err); ok {
		return apperr.Conflict("A user with this email already exists.")
	}
	if err != nil {
		return fmt.Errorf("failed to create staff user: %w", err)
	}
	return nil
}

func (s *postgresStore) UpdatePassword(ctx context.Context, id uuid.UUID, c *Credential) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE staff_users SET password_hash = $2, salt = $3, updated_at = NOW() WHERE id = $1`,
		id, c.PasswordHash, c.Salt)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRow(res)
}

func (s *postgresStore) ListActive(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM staff_users WHERE is_active ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *postgresStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE staff_users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate staff user: %w", err)
	}
	return requireRow(res)
}

func (s *postgresStore) CountOwners(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM staff_users WHERE role = 'OWNER' AND is_active`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Staff user not found.")
	}
	return nil
}
