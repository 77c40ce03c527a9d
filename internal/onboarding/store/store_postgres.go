package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"konto/internal/onboarding/models"
	"konto/pkg/platform/sentinel"
)

// PostgresStore persists aggregates as one row each. Personal data, documents
// and consents travel as JSONB; everything the lifecycle branches on (status,
// version, flags, retention) is a real column. The version compare happens in
// the UPDATE's WHERE clause so the check-and-increment is atomic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema for reference; migrations live with the deployment.
//
//	CREATE TABLE onboarding_applications (
//	    id                   UUID PRIMARY KEY,
//	    status               TEXT NOT NULL,
//	    version              BIGINT NOT NULL,
//	    personal             JSONB NOT NULL,
//	    email_verified       BOOLEAN NOT NULL DEFAULT FALSE,
//	    phone_verified       BOOLEAN NOT NULL DEFAULT FALSE,
//	    documents            JSONB NOT NULL DEFAULT '[]',
//	    consents             JSONB NOT NULL DEFAULT '[]',
//	    assigned_to          TEXT NOT NULL DEFAULT '',
//	    requires_manual_review BOOLEAN NOT NULL DEFAULT FALSE,
//	    review_reason        TEXT NOT NULL DEFAULT '',
//	    rejection_reason     TEXT NOT NULL DEFAULT '',
//	    customer_id          TEXT NOT NULL DEFAULT '',
//	    account_number       TEXT NOT NULL DEFAULT '',
//	    marked_for_deletion  BOOLEAN NOT NULL DEFAULT FALSE,
//	    anonymized           BOOLEAN NOT NULL DEFAULT FALSE,
//	    data_retention_until TIMESTAMPTZ,
//	    created_at           TIMESTAMPTZ NOT NULL,
//	    submitted_at         TIMESTAMPTZ,
//	    approved_at          TIMESTAMPTZ,
//	    rejected_at          TIMESTAMPTZ
//	);
//	CREATE INDEX onboarding_applications_retention
//	    ON onboarding_applications (data_retention_until)
//	    WHERE marked_for_deletion AND NOT anonymized;

const applicationColumns = `
	id, status, version, personal, email_verified, phone_verified,
	documents, consents, assigned_to, requires_manual_review, review_reason,
	rejection_reason, customer_id, account_number, marked_for_deletion,
	anonymized, data_retention_until, created_at, submitted_at, approved_at,
	rejected_at`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	personal, documents, consents, err := marshalAggregate(app)
	if err != nil {
		return err
	}
	app.Version = 1
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO onboarding_applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		app.ID, string(app.Status), app.Version, personal, app.EmailVerified, app.PhoneVerified,
		documents, consents, app.AssignedTo, app.RequiresManualReview, app.ReviewReason,
		app.RejectionReason, app.CustomerID, app.AccountNumber, app.MarkedForDeletion,
		app.Anonymized, app.DataRetentionUntil, app.CreatedAt, app.SubmittedAt, app.ApprovedAt,
		app.RejectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM onboarding_applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (s *PostgresStore) Save(ctx context.Context, app *models.Application) error {
	personal, documents, consents, err := marshalAggregate(app)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE onboarding_applications SET
			status = $3, version = version + 1, personal = $4,
			email_verified = $5, phone_verified = $6, documents = $7,
			consents = $8, assigned_to = $9, requires_manual_review = $10,
			review_reason = $11, rejection_reason = $12, customer_id = $13,
			account_number = $14, marked_for_deletion = $15, anonymized = $16,
			data_retention_until = $17, submitted_at = $18, approved_at = $19,
			rejected_at = $20
		WHERE id = $1 AND version = $2`,
		app.ID, app.Version, string(app.Status), personal,
		app.EmailVerified, app.PhoneVerified, documents,
		consents, app.AssignedTo, app.RequiresManualReview,
		app.ReviewReason, app.RejectionReason, app.CustomerID,
		app.AccountNumber, app.MarkedForDeletion, app.Anonymized,
		app.DataRetentionUntil, app.SubmittedAt, app.ApprovedAt,
		app.RejectedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or someone else advanced the version.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM onboarding_applications WHERE id = $1)`, app.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check application existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	app.Version++
	return nil
}

func (s *PostgresStore) ListDueForAnonymization(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM onboarding_applications
		WHERE marked_for_deletion AND NOT anonymized AND data_retention_until <= $1`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list due for anonymization: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan application id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func marshalAggregate(app *models.Application) (personal, documents, consents []byte, err error) {
	if personal, err = json.Marshal(app.Personal); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal personal data: %w", err)
	}
	docs := app.Documents
	if docs == nil {
		docs = []models.Document{}
	}
	if documents, err = json.Marshal(docs); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal documents: %w", err)
	}
	cons := app.Consents
	if cons == nil {
		cons = []models.Consent{}
	}
	if consents, err = json.Marshal(cons); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal consents: %w", err)
	}
	return personal, documents, consents, nil
}

func scanApplication(row *sql.Row) (*models.Application, error) {
	var (
		app        models.Application
		status     string
		personal   []byte
		documents  []byte
		consents   []byte
		retention  sql.NullTime
		submitted  sql.NullTime
		approved   sql.NullTime
		rejected   sql.NullTime
	)
	err := row.Scan(
		&app.ID, &status, &app.Version, &personal, &app.EmailVerified, &app.PhoneVerified,
		&documents, &consents, &app.AssignedTo, &app.RequiresManualReview, &app.ReviewReason,
		&app.RejectionReason, &app.CustomerID, &app.AccountNumber, &app.MarkedForDeletion,
		&app.Anonymized, &retention, &app.CreatedAt, &submitted, &approved,
		&rejected,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.Status = models.ApplicationStatus(status)
	if err := json.Unmarshal(personal, &app.Personal); err != nil {
		return nil, fmt.Errorf("unmarshal personal data: %w", err)
	}
	if err := json.Unmarshal(documents, &app.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	if err := json.Unmarshal(consents, &app.Consents); err != nil {
		return nil, fmt.Errorf("unmarshal consents: %w", err)
	}
	if retention.Valid {
		app.DataRetentionUntil = &retention.Time
	}
	if submitted.Valid {
		app.SubmittedAt = &submitted.Time
	}
	if approved.Valid {
		app.ApprovedAt = &approved.Time
	}
	if rejected.Valid {
		app.RejectedAt = &rejected.Time
	}
	return &app, nil
}
