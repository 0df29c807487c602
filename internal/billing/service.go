package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the interface for the billing service.
type Service interface {
	RecordPayment(ctx context.Context, in RecordInput) (*Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListPayments(ctx context.Context, f ListFilter) (*PaymentPage, error)
	MemberPayments(ctx context.Context, memberID uuid.UUID, limit int) ([]*Payment, error)
	MonthlyRevenue(ctx context.Context, year int) (*RevenueSummary, error)
}

// Store persists payments.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	List(ctx context.Context, f ListFilter) ([]*Payment, int, error)
	RecentForMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*Payment, error)
	MonthlyRevenue(ctx context.Context, year int) ([]MonthRevenue, error)
	// WithinTx runs fn in one transaction, committed when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view used while recording a payment.
type Tx interface {
	// LockMember returns the member and holds it until the transaction ends.
	LockMember(ctx context.Context, id uuid.UUID) (*Payer, error)
	// FindByMemberPeriod returns nil and no error when no payment exists.
	FindByMemberPeriod(ctx context.Context, memberID uuid.UUID, month, year int) (*Payment, error)
	// MaxReceiptForPrefix returns the greatest receipt of periodPrefix, or ""
	// when there is none. Concurrent callers for one prefix are serialized.
	MaxReceiptForPrefix(ctx context.Context, periodPrefix string) (string, error)
	Insert(ctx context.Context, p *Payment, nextDue time.Time) error
	UpdateMemberLifecycle(ctx context.Context, memberID uuid.UUID, dueDate time.Time) error
}

// PaymentRecorder counts recorded payments.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, amount decimal.Decimal)
}
