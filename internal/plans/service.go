package plans

import (
	"context"

	"github.com/google/uuid"

	"gymflow/internal/membership"
)

// Service defines the member plan operations.
type Service interface {
	MemberPlans(ctx context.Context, memberID uuid.UUID) (*MemberPlans, error)
	SendPlan(ctx context.Context, memberID uuid.UUID, in SendInput) (*SendResult, error)
}

// Store persists plans.
type Store interface {
	// Current returns the member's plans, at most one per type.
	Current(ctx context.Context, memberID uuid.UUID) ([]*Plan, error)
	// Replace stores p as the member's plan of its type, dropping any earlier
	// one, and sets p.SentAt.
	Replace(ctx context.Context, p *Plan) error
}

// MemberFinder looks up the member a plan is for.
type MemberFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*membership.Member, error)
}

// Enqueuer hands work to the post-commit notification queue.
type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}
