// Package dashboard serves the front-desk overview figures.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gymflow/internal/calendar"
	"gymflow/internal/membership"
)

// Summary holds member totals and revenue for the current and previous month
// in the gym timezone.
type Summary struct {
	TotalMembers              int             `json:"totalMembers"`
	ActiveMembers             int             `json:"activeMembers"`
	ExpiredMembers            int             `json:"expiredMembers"`
	CurrentMonthRevenue       decimal.Decimal `json:"currentMonthRevenue"`
	CurrentMonthPaymentsCount int             `json:"currentMonthPaymentsCount"`
	LastMonthRevenue          decimal.Decimal `json:"lastMonthRevenue"`
	LastMonthPaymentsCount    int             `json:"lastMonthPaymentsCount"`
}

// MemberCounts are member totals by status.
type MemberCounts struct {
	Total, Active, Expired int
}

// PeriodRevenue is the payment sum and count for one billing month.
type PeriodRevenue struct {
	Revenue decimal.Decimal
	Count   int
}

// RecentPayment is a payment row on the activity feed.
type RecentPayment struct {
	ID            uuid.UUID       `json:"id"`
	ReceiptNumber string          `json:"receiptNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	PaidDate      time.Time       `json:"paidDate"`
	MemberName    *string         `json:"memberName"`
	MemberPhone   *string         `json:"memberPhone"`
	CollectedBy   *string         `json:"collectedBy"`
}

// RecentMember is a newly registered member on the activity feed.
type RecentMember struct {
	ID        uuid.UUID         `json:"id"`
	FullName  string            `json:"fullName"`
	Phone     string            `json:"phone"`
	Status    membership.Status `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Activity is the latest payments and registrations, newest first.
type Activity struct {
	RecentPayments []*RecentPayment `json:"recentPayments"`
	RecentMembers  []*RecentMember  `json:"recentMembers"`
}

// RecentLimit is the size of each activity list.
const RecentLimit = 5

// Store reads the aggregates behind the dashboard.
type Store interface {
	MemberCounts(ctx context.Context) (MemberCounts, error)
	Revenue(ctx context.Context, month, year int) (PeriodRevenue, error)
	RecentPayments(ctx context.Context, limit int) ([]*RecentPayment, error)
	RecentMembers(ctx context.Context, limit int) ([]*RecentMember, error)
}

// Service computes the dashboard views.
type Service struct {
	store  Store
	clock  calendar.Clock
	loc    *time.Location
	logger *zap.Logger
}

func NewService(store Store, clock calendar.Clock, loc *time.Location, logger *zap.Logger) *Service {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, clock: clock, loc: loc, logger: logger}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	today := calendar.Today(s.clock, s.loc)
	last := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, s.loc)

	counts, err := s.store.MemberCounts(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.store.Revenue(ctx, int(today.Month()), today.Year())
	if err != nil {
		return nil, err
	}
	previous, err := s.store.Revenue(ctx, int(last.Month()), last.Year())
	if err != nil {
		return nil, err
	}

	return &Summary{
		TotalMembers:              counts.Total,
		ActiveMembers:             counts.Active,
		ExpiredMembers:            counts.Expired,
		CurrentMonthRevenue:       current.Revenue,
		CurrentMonthPaymentsCount: current.Count,
		LastMonthRevenue:          previous.Revenue,
		LastMonthPaymentsCount:    previous.Count,
	}, nil
}

func (s *Service) RecentActivity(ctx context.Context) (*Activity, error) {
	payments, err := s.store.RecentPayments(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}
	members, err := s.store.RecentMembers(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*RecentPayment{}
	}
	if members == nil {
		members = []*RecentMember{}
	}
	return &Activity{RecentPayments: payments, RecentMembers: members}, nil
}
