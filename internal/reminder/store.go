package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LogStore keeps the append-only reminder log.
type LogStore interface {
	Append(ctx context.Context, entry *Log) error
	List(ctx context.Context, f LogFilter) ([]*Log, int, error)
}

type postgresLogStore struct {
	db *sql.DB
}

// NewPostgresLogStore creates a LogStore over db.
func NewPostgresLogStore(db *sql.DB) LogStore {
	return &postgresLogStore{db: db}
}

func (s *postgresLogStore) Append(ctx context.Context, e *Log) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminder_logs (id, member_id, type, channel, status, message, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.MemberID, e.Type, e.Channel, e.Status, e.Message, e.Error, e.SentAt)
	if err != nil {
		return fmt.Errorf("insert reminder log: %w", err)
	}
	return nil
}

func (s *postgresLogStore) List(ctx context.Context, f LogFilter) ([]*Log, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("l.%s = $%d", column, len(args)))
	}
	if f.Type != "" {
		add("type", f.Type)
	}
	if f.Channel != "" {
		add("channel", f.Channel)
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	if f.MemberID != nil {
		add("member_id", *f.MemberID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminder_logs l`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reminder logs: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT l.id, l.member_id, l.type, l.channel, l.status, l.message, l.error, l.sent_at, m.full_name, m.phone
		FROM reminder_logs l
		JOIN members m ON m.id = l.member_id%s
		ORDER BY l.sent_at DESC
		LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query reminder logs: %w", err)
	}
	defer rows.Close()

	logs := []*Log{}
	for rows.Next() {
		l := &Log{Member: &LogMember{}}
		if err := rows.Scan(&l.ID, &l.MemberID, &l.Type, &l.Channel, &l.Status, &l.Message, &l.Error, &l.SentAt,
			&l.Member.FullName, &l.Member.Phone); err != nil {
			return nil, 0, fmt.Errorf("scan reminder log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reminder logs: %w", err)
	}
	return logs, total, nil
}
