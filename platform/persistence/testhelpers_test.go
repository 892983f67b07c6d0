package persistence

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests run against an external Postgres (e.g. Testcontainers or
// a local instance) addressed by TEST_DATABASE_URL, and are skipped otherwise.

var testSchemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS companies (
        company_id   TEXT PRIMARY KEY,
        name         TEXT NOT NULL DEFAULT '',
        database_url TEXT NOT NULL,
        max_conns    INT NOT NULL DEFAULT 0,
        is_active    BOOLEAN NOT NULL DEFAULT TRUE,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS users (
        user_id    TEXT PRIMARY KEY,
        email      TEXT NOT NULL DEFAULT '',
        full_name  TEXT NOT NULL DEFAULT '',
        is_online  BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS meetings (
        meeting_id    TEXT PRIMARY KEY,
        user_id       TEXT NOT NULL,
        client_name   TEXT NOT NULL DEFAULT '',
        start_time    TIMESTAMPTZ NOT NULL,
        reminder_sent BOOLEAN NOT NULL DEFAULT FALSE
    )`,
	`CREATE TABLE IF NOT EXISTS followups (
        followup_id   TEXT PRIMARY KEY,
        user_id       TEXT NOT NULL,
        lead_name     TEXT NOT NULL DEFAULT '',
        scheduled_at  TIMESTAMPTZ NOT NULL,
        reminder_sent BOOLEAN NOT NULL DEFAULT FALSE
    )`,
	`CREATE TABLE IF NOT EXISTS notifications (
        id         UUID PRIMARY KEY,
        user_id    TEXT NOT NULL,
        kind       TEXT NOT NULL DEFAULT '',
        message    TEXT NOT NULL DEFAULT '',
        is_read    BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
}

var testTruncate = `TRUNCATE companies, users, meetings, followups, notifications`

// mustTestPool connects to the test database, applies the schema and wipes
// table contents so each test starts clean.
func mustTestPool(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	url, ok := os.LookupEnv("TEST_DATABASE_URL")
	if !ok || url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("create test pool: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, stmt := range testSchemaDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("apply test schema: %v", err)
		}
	}
	if _, err := pool.Exec(ctx, testTruncate); err != nil {
		t.Fatalf("truncate test tables: %v", err)
	}

	return pool, url
}
