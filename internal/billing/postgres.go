package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymflow/internal/apperr"
	"gymflow/internal/calendar"
	"gymflow/internal/database"
	"gymflow/internal/eventstore"
	"gymflow/internal/membership"
)

const (
	memberPeriodConstraint = "payments_member_period_key"
	receiptConstraint      = "payments_receipt_number_key"
)

const paymentSelect = `
	SELECT p.id, p.receipt_number, p.member_id, p.month, p.year, p.amount, p.paid_date,
		p.notes, p.collected_by_id, m.full_name, m.phone, m.email, s.name
	FROM payments p
	LEFT JOIN members m ON m.id = p.member_id
	LEFT JOIN staff_users s ON s.id = p.collected_by_id`

type postgresStore struct {
	db     *sql.DB
	events *eventstore.EventStore
	tracer trace.Tracer
}

// NewPostgresStore creates a payment Store over db.
func NewPostgresStore(db *sql.DB, events *eventstore.EventStore) Store {
	return &postgresStore{db: db, events: events, tracer: otel.Tracer("gymflow/billing")}
}

// WithinTx runs fn at READ COMMITTED. Duplicate periods are caught by the
// member row lock and the unique constraint; receipt numbering by an
// advisory lock per prefix.
func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		return fn(&postgresTx{tx: tx, events: s.events})
	})
}

func (s *postgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, paymentSelect+` WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Payment not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (s *postgresStore) List(ctx context.Context, f ListFilter) ([]*Payment, int, error) {
	ctx, span := s.tracer.Start(ctx, "billing.list")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if f.MemberID != nil {
		args = append(args, *f.MemberID)
		where = append(where, fmt.Sprintf("p.member_id = $%d", len(args)))
	}
	if f.Month != 0 {
		args = append(args, f.Month)
		where = append(where, fmt.Sprintf("p.month = $%d", len(args)))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		where = append(where, fmt.Sprintf("p.year = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments p`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(`%s%s ORDER BY p.paid_date DESC LIMIT $%d OFFSET $%d`,
		paymentSelect, clause, len(args)-1, len(args))
	payments, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int("payments.total", total))
	return payments, total, nil
}

func (s *postgresStore) RecentForMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*Payment, error) {
	return s.query(ctx, paymentSelect+`
		WHERE p.member_id = $1
		ORDER BY p.year DESC, p.month DESC
		LIMIT $2`, memberID, limit)
}

func (s *postgresStore) MonthlyRevenue(ctx context.Context, year int) ([]MonthRevenue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT month, COALESCE(SUM(amount), 0), COUNT(*)
		FROM payments
		WHERE year = $1
		GROUP BY month
		ORDER BY month ASC
	`, year)
	if err != nil {
		return nil, fmt.Errorf("query revenue: %w", err)
	}
	defer rows.Close()

	var out []MonthRevenue
	for rows.Next() {
		var r MonthRevenue
		if err := rows.Scan(&r.Month, &r.Revenue, &r.Count); err != nil {
			return nil, fmt.Errorf("scan revenue: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue: %w", err)
	}
	return out, nil
}

func (s *postgresStore) query(ctx context.Context, query string, args ...any) ([]*Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := []*Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var (
		p                  Payment
		memberName, phone  sql.NullString
		email, collectedBy sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.ReceiptNumber,
		&p.MemberID,
		&p.Month,
		&p.Year,
		&p.Amount,
		&p.PaidDate,
		&p.Notes,
		&p.CollectedByID,
		&memberName,
		&phone,
		&email,
		&collectedBy,
	)
	if err != nil {
		return nil, err
	}
	if memberName.Valid {
		p.Member = &PaymentMember{FullName: memberName.String, Phone: phone.String}
		if email.Valid {
			p.Member.Email = &email.String
		}
	}
	if collectedBy.Valid {
		p.CollectedBy = &Collector{Name: collectedBy.String}
	}
	return &p, nil
}

type postgresTx struct {
	tx     *sql.Tx
	events *eventstore.EventStore
}

func (t *postgresTx) LockMember(ctx context.Context, id uuid.UUID) (*Payer, error) {
	var p Payer
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, full_name, email, phone FROM members WHERE id = $1 FOR UPDATE
	`, id).Scan(&p.ID, &p.FullName, &p.Email, &p.Phone)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Member not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("lock member: %w", err)
	}
	return &p, nil
}

func (t *postgresTx) FindByMemberPeriod(ctx context.Context, memberID uuid.UUID, month, year int) (*Payment, error) {
	p, err := scanPayment(t.tx.QueryRowContext(ctx,
		paymentSelect+` WHERE p.member_id = $1 AND p.month = $2 AND p.year = $3`, memberID, month, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment for period: %w", err)
	}
	return p, nil
}

func (t *postgresTx) MaxReceiptForPrefix(ctx context.Context, periodPrefix string) (string, error) {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, periodPrefix); err != nil {
		return "", fmt.Errorf("lock receipt sequence: %w", err)
	}

	var latest string
	err := t.tx.QueryRowContext(ctx, `
		SELECT receipt_number
		FROM payments
		WHERE starts_with(receipt_number, $1)
		ORDER BY LENGTH(receipt_number) DESC, receipt_number DESC
		LIMIT 1
	`, periodPrefix+"-").Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find latest receipt: %w", err)
	}
	return latest, nil
}

// Insert writes the payment and its PaymentRecorded event.
func (t *postgresTx) Insert(ctx context.Context, p *Payment, nextDue time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (id, receipt_number, member_id, month, year, amount, paid_date, notes, collected_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.ReceiptNumber, p.MemberID, p.Month, p.Year, p.Amount, p.PaidDate, p.Notes, p.CollectedByID)
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case memberPeriodConstraint:
			return duplicatePeriod(p.Month, p.Year)
		case receiptConstraint:
			return apperr.Conflict("Receipt number %s already issued, please retry.", p.ReceiptNumber)
		}
		return apperr.Wrap(apperr.KindConflict, err, "Payment already recorded.")
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	event, err := eventstore.New(p.ID, eventstore.AggregatePayment, eventstore.PaymentRecorded, PaymentRecordedEvent{
		PaymentID:     p.ID,
		MemberID:      *p.MemberID,
		ReceiptNumber: p.ReceiptNumber,
		Month:         p.Month,
		Year:          p.Year,
		Amount:        p.Amount,
		NextDueDate:   calendar.Format(nextDue),
	}, p.MemberID)
	if err != nil {
		return err
	}
	return t.events.Append(ctx, t.tx, event)
}

func (t *postgresTx) UpdateMemberLifecycle(ctx context.Context, memberID uuid.UUID, dueDate time.Time) error {
	return membership.UpdateLifecycle(ctx, t.tx, memberID, membership.StatusActive, dueDate)
}
