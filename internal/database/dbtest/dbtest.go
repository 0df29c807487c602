// Package dbtest opens a migrated Postgres database for integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"gymflow/internal/database"
)

// Open connects using the PG* environment variables and applies the schema.
// The test is skipped when no server is reachable. Every table is truncated
// before the test runs.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		env("PGHOST", "localhost"),
		env("PGPORT", "5432"),
		env("PGUSER", "user"),
		env("PGPASSWORD", "password"),
		env("PGDATABASE", "testdb"),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(context.Background()); err != nil {
		t.Skipf("skipping integration test: could not connect to postgres: %v", err)
	}

	m, err := database.NewMigrator(db, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE events, member_plans, reminder_logs, payments, members, staff_users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
	return db
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
