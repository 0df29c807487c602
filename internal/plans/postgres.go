package plans

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymflow/internal/apperr"
	"gymflow/internal/database"
)

type postgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a plan Store over db.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db, tracer: otel.Tracer("gymflow/plans")}
}

func (s *postgresStore) Current(ctx context.Context, memberID uuid.UUID) ([]*Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, type, title, content, sent_by_id, sent_at
		FROM member_plans
		WHERE member_id = $1
		ORDER BY type ASC
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		p := &Plan{}
		var sentBy uuid.NullUUID
		if err := rows.Scan(&p.ID, &p.MemberID, &p.Type, &p.Title, &p.Content, &sentBy, &p.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if sentBy.Valid {
			p.SentByID = &sentBy.UUID
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Replace upserts on (member_id, type), so concurrent sends leave exactly one
// plan of each type.
func (s *postgresStore) Replace(ctx context.Context, p *Plan) error {
	ctx, span := s.tracer.Start(ctx, "plans.replace",
		trace.WithAttributes(
			attribute.String("member.id", p.MemberID.String()),
			attribute.String("plan.type", string(p.Type)),
		),
	)
	defer span.End()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO member_plans (id, member_id, type, title, content, sent_by_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (member_id, type) DO UPDATE SET
			id = EXCLUDED.id,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			sent_by_id = EXCLUDED.sent_by_id,
			sent_at = EXCLUDED.sent_at
		RETURNING sent_at
	`, p.ID, p.MemberID, p.Type, p.Title, p.Content, p.SentByID).Scan(&p.SentAt)
	if database.ForeignKeyViolation(err) {
		return apperr.NotFound("Member not found.")
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}
