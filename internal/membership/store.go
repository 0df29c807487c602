package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists members.
type Store interface {
	// Create inserts m, assigning its member number and timestamps, and
	// appends a MemberRegistered event in the same transaction.
	Create(ctx context.Context, m *Member) error
	FindByID(ctx context.Context, id uuid.UUID) (*Member, error)
	List(ctx context.Context, f ListFilter) ([]*Member, int, error)
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindDueOn returns ACTIVE members whose due date is exactly date.
	FindDueOn(ctx context.Context, date time.Time) ([]*Member, error)
	// FindByBirthday matches birthday month and day, ignoring the year.
	FindByBirthday(ctx context.Context, month, day int) ([]*Member, error)
	// ExpireOverdue flips every ACTIVE member due before the given date to
	// EXPIRED in one statement and returns how many changed.
	ExpireOverdue(ctx context.Context, before time.Time) (int64, error)
}
