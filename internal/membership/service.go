package membership

import (
	"context"

	"github.com/google/uuid"

	"gymflow/internal/eventstore"
)

// Service defines the interface for the membership service.
type Service interface {
	RegisterMember(ctx context.Context, in RegisterInput) (*Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	ListMembers(ctx context.Context, f ListFilter) (*MemberPage, error)
	UpdateMember(ctx context.Context, id uuid.UUID, in UpdateInput) (*Member, error)
	DeleteMember(ctx context.Context, id uuid.UUID) error
	CheckEntry(ctx context.Context, id uuid.UUID) (*EntryDecision, error)
	History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error)
}

// Enqueuer hands work to the post-commit notification queue.
type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}

// HistoryReader reads a member's domain events.
type HistoryReader interface {
	MemberHistory(ctx context.Context, memberID uuid.UUID) ([]eventstore.Event, error)
}
