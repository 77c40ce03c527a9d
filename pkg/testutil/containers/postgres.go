//go:build integration

// Package containers provides shared testcontainers helpers for integration
// tests. Build-tagged so unit runs never pull in docker.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema mirrors the deployment migrations for the tables the stores touch.
const schema = `
CREATE TABLE IF NOT EXISTS onboarding_applications (
    id                     UUID PRIMARY KEY,
    status                 TEXT NOT NULL,
    version                BIGINT NOT NULL,
    personal               JSONB NOT NULL,
    email_verified         BOOLEAN NOT NULL DEFAULT FALSE,
    phone_verified         BOOLEAN NOT NULL DEFAULT FALSE,
    documents              JSONB NOT NULL DEFAULT '[]',
    consents               JSONB NOT NULL DEFAULT '[]',
    assigned_to            TEXT NOT NULL DEFAULT '',
    requires_manual_review BOOLEAN NOT NULL DEFAULT FALSE,
    review_reason          TEXT NOT NULL DEFAULT '',
    rejection_reason       TEXT NOT NULL DEFAULT '',
    customer_id            TEXT NOT NULL DEFAULT '',
    account_number         TEXT NOT NULL DEFAULT '',
    marked_for_deletion    BOOLEAN NOT NULL DEFAULT FALSE,
    anonymized             BOOLEAN NOT NULL DEFAULT FALSE,
    data_retention_until   TIMESTAMPTZ,
    created_at             TIMESTAMPTZ NOT NULL,
    submitted_at           TIMESTAMPTZ,
    approved_at            TIMESTAMPTZ,
    rejected_at            TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS onboarding_applications_retention
    ON onboarding_applications (data_retention_until)
    WHERE marked_for_deletion AND NOT anonymized;

CREATE TABLE IF NOT EXISTS otp_challenges (
    id             UUID PRIMARY KEY,
    application_id UUID NOT NULL,
    channel        TEXT NOT NULL,
    code_hash      TEXT NOT NULL,
    expires_at     TIMESTAMPTZ NOT NULL,
    attempts       INT NOT NULL DEFAULT 0,
    status         TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    verified_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS otp_challenges_latest
    ON otp_challenges (application_id, channel, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_events (
    id             UUID PRIMARY KEY,
    occurred_at    TIMESTAMPTZ NOT NULL,
    application_id UUID,
    action         TEXT NOT NULL,
    actor          TEXT NOT NULL,
    outcome        TEXT NOT NULL,
    details        TEXT,
    request_id     TEXT
);
CREATE INDEX IF NOT EXISTS audit_events_application
    ON audit_events (application_id, occurred_at);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// onboarding schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	URL       string
}

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("konto_test"),
		tcpostgres.WithUsername("konto"),
		tcpostgres.WithPassword("konto"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{Container: container, DB: db, URL: url}
	t.Cleanup(func() {
		_ = pc.DB.Close()
		_ = pc.Container.Terminate(context.Background())
	})
	return pc
}

// TruncateTables empties the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", strings.Join(tables, ", ")))
	return err
}

// Exec runs a raw statement, used by tests for fixtures.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}
