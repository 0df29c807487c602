package settings

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymflow/internal/apperr"
	"gymflow/internal/database"
)

type service struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewService creates a Postgres-backed settings service.
func NewService(db *sql.DB) Service {
	return &service{
		db:     db,
		tracer: otel.Tracer("gymflow/settings"),
	}
}

func (s *service) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *service) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *service) Update(ctx context.Context, key, value string) (*Setting, error) {
	if !Allowed(key) {
		return nil, apperr.Validation("Unknown setting key: %s", key)
	}
	return upsert(ctx, s.db, key, value)
}

// UpdateMany applies all updates in one transaction. Any unknown key rejects
// the whole batch before anything is written.
func (s *service) UpdateMany(ctx context.Context, updates []Setting) (int, error) {
	ctx, span := s.tracer.Start(ctx, "settings.update_many",
		trace.WithAttributes(attribute.Int("settings.count", len(updates))),
	)
	defer span.End()

	if len(updates) == 0 {
		return 0, apperr.Validation("settings array is required.")
	}
	for _, u := range updates {
		if !Allowed(u.Key) {
			return 0, apperr.Validation("Unknown setting key: %s", u.Key)
		}
	}

	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		for _, u := range updates {
			if _, err := upsert(ctx, tx, u.Key, u.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(updates), nil
}

func upsert(ctx context.Context, q database.Querier, key, value string) (*Setting, error) {
	setting := &Setting{}
	err := q.QueryRowContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING key, value, updated_at
	`, key, value).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return setting, nil
}
