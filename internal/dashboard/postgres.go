package dashboard

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gymflow/internal/membership"
)

type postgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a dashboard Store over db.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db, tracer: otel.Tracer("gymflow/dashboard")}
}

func (s *postgresStore) MemberCounts(ctx context.Context) (MemberCounts, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.member_counts")
	defer span.End()

	var c MemberCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		FROM members
	`, membership.StatusActive, membership.StatusExpired).Scan(&c.Total, &c.Active, &c.Expired)
	if err != nil {
		return MemberCounts{}, fmt.Errorf("failed to count members: %w", err)
	}
	return c, nil
}

func (s *postgresStore) Revenue(ctx context.Context, month, year int) (PeriodRevenue, error) {
	var r PeriodRevenue
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM payments
		WHERE month = $1 AND year = $2
	`, month, year).Scan(&r.Revenue, &r.Count)
	if err != nil {
		return PeriodRevenue{}, fmt.Errorf("failed to sum revenue for %d/%d: %w", month, year, err)
	}
	return r, nil
}

func (s *postgresStore) RecentPayments(ctx context.Context, limit int) ([]*RecentPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.receipt_number, p.amount, p.month, p.year, p.paid_date,
			m.full_name, m.phone, st.name
		FROM payments p
		LEFT JOIN members m ON m.id = p.member_id
		LEFT JOIN staff_users st ON st.id = p.collected_by_id
		ORDER BY p.paid_date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent payments: %w", err)
	}
	defer rows.Close()

	var out []*RecentPayment
	for rows.Next() {
		p := &RecentPayment{}
		if err := rows.Scan(&p.ID, &p.ReceiptNumber, &p.Amount, &p.Month, &p.Year, &p.PaidDate,
			&p.MemberName, &p.MemberPhone, &p.CollectedBy); err != nil {
			return nil, fmt.Errorf("failed to scan recent payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *postgresStore) RecentMembers(ctx context.Context, limit int) ([]*RecentMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, phone, status, created_at
		FROM members
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent members: %w", err)
	}
	defer rows.Close()

	var out []*RecentMember
	for rows.Next() {
		m := &RecentMember{}
		if err := rows.Scan(&m.ID, &m.FullName, &m.Phone, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
