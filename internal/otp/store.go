package otp

import (
	"context"

	"konto/internal/onboarding/models"
)

// Store persists challenges. Attempt counting must be serialized by the
// implementation (atomic increment) so two near-simultaneous wrong guesses
// can never both count once.
type Store interface {
	Create(ctx context.Context, challenge *Challenge) error

	// FindLatest returns the most recently created challenge for the
	// application and channel, regardless of status. Returns
	// sentinel.ErrNotFound when none exists.
	FindLatest(ctx context.Context, applicationID string, channel models.Channel) (*Challenge, error)

	// MarkStatus moves a challenge into a terminal status. VerifiedAt is set
	// when the status is Verified.
	MarkStatus(ctx context.Context, id string, status ChallengeStatus) error

	// IncrementAttempts atomically bumps the attempt counter and returns the
	// value after the increment.
	IncrementAttempts(ctx context.Context, id string) (int, error)
}
