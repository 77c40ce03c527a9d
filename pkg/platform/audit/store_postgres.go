package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore appends audit events to a plain table.
//
//	CREATE TABLE audit_events (
//	    id             UUID PRIMARY KEY,
//	    occurred_at    TIMESTAMPTZ NOT NULL,
//	    application_id UUID,
//	    action         TEXT NOT NULL,
//	    actor          TEXT NOT NULL,
//	    outcome        TEXT NOT NULL,
//	    details        TEXT,
//	    request_id     TEXT
//	);
//	CREATE INDEX audit_events_application ON audit_events (application_id, occurred_at);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var appID any
	if event.ApplicationID != "" {
		appID = event.ApplicationID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, occurred_at, application_id, action, actor, outcome, details, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), event.Timestamp, appID, string(event.Action), event.Actor, event.Outcome, event.Details, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, applicationID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, COALESCE(application_id::text, ''), action, actor, outcome, COALESCE(details, ''), COALESCE(request_id, '')
		FROM audit_events
		WHERE application_id = $1
		ORDER BY occurred_at`,
		applicationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e      Event
			action string
		)
		if err := rows.Scan(&e.Timestamp, &e.ApplicationID, &action, &e.Actor, &e.Outcome, &e.Details, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = AuditEvent(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
