package membership

import (
	"context"
	"database/sql"
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
)

const memberColumns = `id, member_number, full_name, nic, email, phone, birthday, medical_notes,
	emergency_contact, status, due_date, join_date, created_at, updated_at`

type postgresStore struct {
	db     *sql.DB
	events *eventstore.EventStore
	loc    *time.Location
	tracer trace.Tracer
}

// NewPostgresStore creates a Store over db. Dates are read and written as
// calendar dates in loc.
func NewPostgresStore(db *sql.DB, events *eventstore.EventStore, loc *time.Location) Store {
	return &postgresStore{
		db:     db,
		events: events,
		loc:    loc,
		tracer: otel.Tracer("gymflow/membership"),
	}
}

func (s *postgresStore) Create(ctx context.Context, m *Member) error {
	ctx, span := s.tracer.Start(ctx, "membership.create")
	defer span.End()

	return database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO members (id, full_name, nic, email, phone, birthday, medical_notes,
				emergency_contact, status, due_date, join_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			RETURNING member_number, created_at, updated_at
		`,
			m.ID, m.FullName, m.NIC, m.Email, m.Phone, dateArg(m.Birthday), m.MedicalNotes,
			m.EmergencyContact, m.Status, calendar.Format(m.DueDate), calendar.Format(m.JoinDate),
		).Scan(&m.MemberNumber, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}

		event, err := eventstore.New(m.ID, eventstore.AggregateMember, eventstore.MemberRegistered, MemberRegisteredEvent{
			ID:           m.ID,
			MemberNumber: m.MemberNumber,
			FullName:     m.FullName,
			DueDate:      calendar.Format(m.DueDate),
		}, nil)
		if err != nil {
			return err
		}
		return s.events.Append(ctx, tx, event)
	})
}

func (s *postgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	m, err := s.scan(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Member not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (s *postgresStore) List(ctx context.Context, f ListFilter) ([]*Member, int, error) {
	ctx, span := s.tracer.Start(ctx, "membership.list")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(full_name ILIKE $%d OR phone LIKE $%d OR nic ILIKE $%d OR email ILIKE $%d)", n, n, n, n))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(`SELECT %s FROM members%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		memberColumns, clause, len(args)-1, len(args))
	members, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int("members.total", total))
	return members, total, nil
}

func (s *postgresStore) Update(ctx context.Context, m *Member) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE members
		SET full_name = $2, nic = $3, email = $4, phone = $5, birthday = $6, medical_notes = $7,
			emergency_contact = $8, status = $9, due_date = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		m.ID, m.FullName, m.NIC, m.Email, m.Phone, dateArg(m.Birthday), m.MedicalNotes,
		m.EmergencyContact, m.Status, calendar.Format(m.DueDate),
	).Scan(&m.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperr.NotFound("Member not found.")
	}
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

// Delete removes the member. Payments keep their rows with member_id set to
// NULL and reminder logs are removed by cascade.
func (s *postgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Member not found.")
	}
	return nil
}

func (s *postgresStore) FindDueOn(ctx context.Context, date time.Time) ([]*Member, error) {
	return s.query(ctx, `SELECT `+memberColumns+` FROM members
		WHERE status = $1 AND due_date = $2
		ORDER BY member_number ASC`, StatusActive, calendar.Format(date))
}

func (s *postgresStore) FindByBirthday(ctx context.Context, month, day int) ([]*Member, error) {
	return s.query(ctx, `SELECT `+memberColumns+` FROM members
		WHERE birthday IS NOT NULL
		AND EXTRACT(MONTH FROM birthday) = $1
		AND EXTRACT(DAY FROM birthday) = $2
		ORDER BY member_number ASC`, month, day)
}

func (s *postgresStore) ExpireOverdue(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "membership.expire_overdue",
		trace.WithAttributes(attribute.String("before", calendar.Format(before))),
	)
	defer span.End()

	var expired int64
	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE members
			SET status = $1, updated_at = NOW()
			WHERE status = $2 AND due_date < $3
			RETURNING id, due_date
		`, StatusExpired, StatusActive, calendar.Format(before))
		if err != nil {
			return fmt.Errorf("expire members: %w", err)
		}

		var events []eventstore.Event
		for rows.Next() {
			var (
				id  uuid.UUID
				due time.Time
			)
			if err := rows.Scan(&id, &due); err != nil {
				rows.Close()
				return fmt.Errorf("scan expired member: %w", err)
			}
			event, err := eventstore.New(id, eventstore.AggregateMember, eventstore.MembershipExpired, MembershipExpiredEvent{
				ID:      id,
				DueDate: calendar.Format(due),
				Before:  calendar.Format(before),
			}, nil)
			if err != nil {
				rows.Close()
				return err
			}
			events = append(events, event)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate expired members: %w", err)
		}

		expired = int64(len(events))
		if expired == 0 {
			return nil
		}
		return s.events.Append(ctx, tx, events...)
	})
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("members.expired", expired))
	return expired, nil
}

// UpdateLifecycle sets status and due date on q, normally the transaction
// that records the payment causing the change.
func UpdateLifecycle(ctx context.Context, q database.Querier, id uuid.UUID, status Status, dueDate time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE members SET status = $2, due_date = $3, updated_at = NOW() WHERE id = $1
	`, id, status, calendar.Format(dueDate))
	if err != nil {
		return fmt.Errorf("update member lifecycle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member lifecycle: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Member not found.")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *postgresStore) scan(row rowScanner) (*Member, error) {
	m := &Member{}
	var birthday sql.NullTime
	err := row.Scan(
		&m.ID,
		&m.MemberNumber,
		&m.FullName,
		&m.NIC,
		&m.Email,
		&m.Phone,
		&birthday,
		&m.MedicalNotes,
		&m.EmergencyContact,
		&m.Status,
		&m.DueDate,
		&m.JoinDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birthday.Valid {
		b := calendar.AsDate(birthday.Time, s.loc)
		m.Birthday = &b
	}
	m.DueDate = calendar.AsDate(m.DueDate, s.loc)
	m.JoinDate = calendar.AsDate(m.JoinDate, s.loc)
	return m, nil
}

func (s *postgresStore) query(ctx context.Context, query string, args ...any) ([]*Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		m, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return calendar.Format(*t)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
