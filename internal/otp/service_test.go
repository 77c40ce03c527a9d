package otp

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"konto/internal/onboarding/models"
	dErrors "konto/pkg/domain-errors"
	"konto/pkg/requestcontext"
)

// captureSender records delivered codes so tests can replay them.
type captureSender struct {
	mu        sync.Mutex
	delivered chan string
}

func newCaptureSender() *captureSender {
	return &captureSender{delivered: make(chan string, 8)}
}

func (s *captureSender) SendCode(_ context.Context, _ models.Channel, _ string, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered <- code
	return nil
}

func (s *captureSender) waitForCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-s.delivered:
		return code
	case <-time.After(time.Second):
		t.Fatal("no code delivered")
		return ""
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, string) error {
	return dErrors.New(dErrors.CodeTooManyRequests, "too many codes requested")
}

type OtpServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	sender  *captureSender
	service *Service
	ctx     context.Context
	now     time.Time
}

func (s *OtpServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.sender = newCaptureSender()
	s.service = NewService(s.store, s.sender, nil, slog.New(slog.DiscardHandler), nil)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestOtpServiceSuite(t *testing.T) {
	suite.Run(t, new(OtpServiceSuite))
}

func (s *OtpServiceSuite) issue(appID string, channel models.Channel) (*Challenge, string) {
	challenge, err := s.service.Issue(s.ctx, appID, channel, "ada@example.com")
	s.Require().NoError(err)
	return challenge, s.sender.waitForCode(s.T())
}

func (s *OtpServiceSuite) TestIssue() {
	s.Run("persists only the hash and delivers the plaintext", func() {
		challenge, code := s.issue("app-1", models.ChannelEmail)

		s.Len(code, CodeLength)
		s.Equal(HashCode(code), challenge.CodeHash)
		s.Equal(ChallengeStatusPending, challenge.Status)
		s.Equal(s.now.Add(TTL), challenge.ExpiresAt)

		stored, err := s.store.FindLatest(s.ctx, "app-1", models.ChannelEmail)
		s.Require().NoError(err)
		s.NotContains(stored.CodeHash, code)
	})

	s.Run("requires a destination", func() {
		_, err := s.service.Issue(s.ctx, "app-1", models.ChannelEmail, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rate limiter blocks issuance", func() {
		limited := NewService(s.store, s.sender, denyLimiter{}, slog.New(slog.DiscardHandler), nil)
		_, err := limited.Issue(s.ctx, "app-1", models.ChannelEmail, "ada@example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
	})
}

func (s *OtpServiceSuite) TestVerify() {
	s.Run("correct code verifies exactly once", func() {
		_, code := s.issue("app-1", models.ChannelEmail)

		s.Require().NoError(s.service.Verify(s.ctx, "app-1", models.ChannelEmail, code))

		stored, err := s.store.FindLatest(s.ctx, "app-1", models.ChannelEmail)
		s.Require().NoError(err)
		s.Equal(ChallengeStatusVerified, stored.Status)
		s.Require().NotNil(stored.VerifiedAt)

		err = s.service.Verify(s.ctx, "app-1", models.ChannelEmail, code)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("no challenge issued", func() {
		err := s.service.Verify(s.ctx, "app-ghost", models.ChannelEmail, "123456")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("wrong code counts down remaining attempts", func() {
		_, code := s.issue("app-2", models.ChannelEmail)
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		err := s.service.Verify(s.ctx, "app-2", models.ChannelEmail, wrong)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "2 attempts remaining")

		err = s.service.Verify(s.ctx, "app-2", models.ChannelEmail, wrong)
		s.Contains(err.Error(), "1 attempts remaining")

		err = s.service.Verify(s.ctx, "app-2", models.ChannelEmail, wrong)
		s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))

		// The correct code no longer works once the challenge is exhausted.
		err = s.service.Verify(s.ctx, "app-2", models.ChannelEmail, code)
		s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
	})

	s.Run("expired code is rejected and marked", func() {
		_, code := s.issue("app-3", models.ChannelEmail)

		late := requestcontext.WithTime(context.Background(), s.now.Add(TTL+time.Second))
		err := s.service.Verify(late, "app-3", models.ChannelEmail, code)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))

		stored, findErr := s.store.FindLatest(s.ctx, "app-3", models.ChannelEmail)
		s.Require().NoError(findErr)
		s.Equal(ChallengeStatusExpired, stored.Status)

		// Repeat verification reports the same outcome.
		err = s.service.Verify(late, "app-3", models.ChannelEmail, code)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("only the most recent challenge per channel is eligible", func() {
		_, first := s.issue("app-4", models.ChannelSMS)
		_, second := s.issue("app-4", models.ChannelSMS)

		if first != second {
			err := s.service.Verify(s.ctx, "app-4", models.ChannelSMS, first)
			s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		}
		s.NoError(s.service.Verify(s.ctx, "app-4", models.ChannelSMS, second))
	})

	s.Run("channels are independent", func() {
		_, emailCode := s.issue("app-5", models.ChannelEmail)
		_, smsCode := s.issue("app-5", models.ChannelSMS)

		s.NoError(s.service.Verify(s.ctx, "app-5", models.ChannelEmail, emailCode))
		s.NoError(s.service.Verify(s.ctx, "app-5", models.ChannelSMS, smsCode))
	})
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != CodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
	}
}
