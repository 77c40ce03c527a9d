package otp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"konto/internal/notification"
	"konto/internal/onboarding/models"
	"konto/internal/platform/metrics"
	dErrors "konto/pkg/domain-errors"
	"konto/pkg/platform/sentinel"
	"konto/pkg/requestcontext"
)

// RateLimiter throttles issuance per (application, channel).
type RateLimiter interface {
	Allow(ctx context.Context, applicationID, channel string) error
}

// Service issues and verifies one-time codes. It is independent of the
// application's own lifecycle state: the orchestrator decides when a
// verification outcome is allowed to move the aggregate.
type Service struct {
	store   Store
	sender  notification.Sender
	limiter RateLimiter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, sender notification.Sender, limiter RateLimiter, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		sender:  sender,
		limiter: limiter,
		logger:  logger,
		metrics: m,
	}
}

// Issue creates a fresh challenge and hands the plaintext code to the
// notification sender. Only the hash is persisted. Issuing does not touch
// earlier challenges for the channel; they simply stop being the latest.
func (s *Service) Issue(ctx context.Context, applicationID string, channel models.Channel, destination string) (*Challenge, error) {
	if applicationID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	if destination == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "destination is required")
	}
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, applicationID, channel.String()); err != nil {
			return nil, err
		}
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	now := requestcontext.Now(ctx)
	challenge := &Challenge{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Channel:       channel,
		CodeHash:      HashCode(code),
		ExpiresAt:     now.Add(TTL),
		Status:        ChallengeStatusPending,
		CreatedAt:     now,
	}
	if err := s.store.Create(ctx, challenge); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store challenge")
	}
	if s.metrics != nil {
		s.metrics.IncrementOtpIssued(channel.String())
	}

	// Delivery is fire-and-forget: the code is already persisted as a hash
	// and the applicant can re-request if the message never arrives.
	go func() {
		if err := s.sender.SendCode(context.WithoutCancel(ctx), channel, destination, code); err != nil {
			s.logger.Error("otp delivery failed",
				"application_id", applicationID,
				"channel", channel,
				"error", err,
			)
		}
	}()

	return challenge, nil
}

// Verify checks a submitted code against the most recently issued challenge
// for the channel.
//
// Errors: CodeNotFound when no challenge exists or the latest one was already
// consumed; CodeExpired past the deadline (status flips to Expired lazily and
// idempotently); CodeTooManyRequests at the attempt cap; CodeUnauthorized on
// a wrong code, with remaining attempts in the message.
func (s *Service) Verify(ctx context.Context, applicationID string, channel models.Channel, submittedCode string) error {
	if submittedCode == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "code is required")
	}
	challenge, err := s.store.FindLatest(ctx, applicationID, channel)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no challenge issued for this channel")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load challenge")
	}

	now := requestcontext.Now(ctx)
	switch challenge.Status {
	case ChallengeStatusVerified:
		return dErrors.New(dErrors.CodeNotFound, "no pending challenge for this channel")
	case ChallengeStatusExpired:
		return dErrors.New(dErrors.CodeExpired, "code has expired, request a new one")
	case ChallengeStatusMaxAttemptsExceeded:
		return dErrors.New(dErrors.CodeTooManyRequests, "maximum verification attempts exceeded, request a new code")
	}

	if now.After(challenge.ExpiresAt) {
		if err := s.store.MarkStatus(ctx, challenge.ID, ChallengeStatusExpired); err != nil {
			s.logger.Error("failed to mark challenge expired", "challenge_id", challenge.ID, "error", err)
		}
		s.countVerification("expired")
		return dErrors.New(dErrors.CodeExpired, "code has expired, request a new one")
	}

	if challenge.Attempts >= MaxAttempts {
		// Persisted counter already at the cap but status not yet terminal,
		// e.g. after a crash between increment and mark.
		if err := s.store.MarkStatus(ctx, challenge.ID, ChallengeStatusMaxAttemptsExceeded); err != nil {
			s.logger.Error("failed to mark challenge exhausted", "challenge_id", challenge.ID, "error", err)
		}
		s.countVerification("max_attempts")
		return dErrors.New(dErrors.CodeTooManyRequests, "maximum verification attempts exceeded, request a new code")
	}

	if !challenge.matchesCode(submittedCode) {
		attempts, err := s.store.IncrementAttempts(ctx, challenge.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attempt")
		}
		if attempts >= MaxAttempts {
			if err := s.store.MarkStatus(ctx, challenge.ID, ChallengeStatusMaxAttemptsExceeded); err != nil {
				s.logger.Error("failed to mark challenge exhausted", "challenge_id", challenge.ID, "error", err)
			}
			s.countVerification("max_attempts")
			return dErrors.New(dErrors.CodeTooManyRequests, "maximum verification attempts exceeded, request a new code")
		}
		s.countVerification("invalid")
		return dErrors.Newf(dErrors.CodeUnauthorized, "invalid code, %d attempts remaining", MaxAttempts-attempts)
	}

	if err := s.store.MarkStatus(ctx, challenge.ID, ChallengeStatusVerified); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark challenge verified")
	}
	s.countVerification("verified")
	return nil
}

func (s *Service) countVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementOtpVerification(outcome)
	}
}
