package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"konto/internal/onboarding/models"
	"konto/pkg/platform/sentinel"
	"konto/pkg/requestcontext"
)

// PostgresStore persists challenges in PostgreSQL. Attempt increments run as
// a single UPDATE ... RETURNING so concurrent wrong guesses serialize on the
// row lock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema for reference; migrations live with the deployment.
//
//	CREATE TABLE otp_challenges (
//	    id             UUID PRIMARY KEY,
//	    application_id UUID NOT NULL,
//	    channel        TEXT NOT NULL,
//	    code_hash      TEXT NOT NULL,
//	    expires_at     TIMESTAMPTZ NOT NULL,
//	    attempts       INT NOT NULL DEFAULT 0,
//	    status         TEXT NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    verified_at    TIMESTAMPTZ
//	);
//	CREATE INDEX otp_challenges_latest
//	    ON otp_challenges (application_id, channel, created_at DESC);

func (s *PostgresStore) Create(ctx context.Context, c *Challenge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otp_challenges
			(id, application_id, channel, code_hash, expires_at, attempts, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.ApplicationID, c.Channel.String(), c.CodeHash, c.ExpiresAt, c.Attempts, string(c.Status), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLatest(ctx context.Context, applicationID string, channel models.Channel) (*Challenge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, channel, code_hash, expires_at, attempts, status, created_at, verified_at
		FROM otp_challenges
		WHERE application_id = $1 AND channel = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		applicationID, channel.String(),
	)
	var (
		c          Challenge
		channelRaw string
		statusRaw  string
		verifiedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.ApplicationID, &channelRaw, &c.CodeHash, &c.ExpiresAt, &c.Attempts, &statusRaw, &c.CreatedAt, &verifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest challenge: %w", err)
	}
	c.Channel = models.Channel(channelRaw)
	c.Status = ChallengeStatus(statusRaw)
	if verifiedAt.Valid {
		c.VerifiedAt = &verifiedAt.Time
	}
	return &c, nil
}

func (s *PostgresStore) MarkStatus(ctx context.Context, id string, status ChallengeStatus) error {
	var verifiedAt sql.NullTime
	if status == ChallengeStatusVerified {
		verifiedAt = sql.NullTime{Time: requestcontext.Now(ctx), Valid: true}
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE otp_challenges SET status = $2, verified_at = COALESCE($3, verified_at)
		WHERE id = $1`,
		id, string(status), verifiedAt,
	)
	if err != nil {
		return fmt.Errorf("mark challenge status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark challenge status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE otp_challenges SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("increment challenge attempts: %w", err)
	}
	return attempts, nil
}
