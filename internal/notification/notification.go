// Package notification defines the outbound delivery port for one-time codes.
// Real email/SMS gateways live behind Sender; the core hands the plaintext
// code over once and never reads it back.
package notification

import (
	"context"
	"log/slog"

	"konto/internal/onboarding/models"
)

// Sender delivers a plaintext code out of band. Implementations are
// fire-and-forget from the core's perspective; delivery failures are an
// operational concern, not a domain one.
type Sender interface {
	SendCode(ctx context.Context, channel models.Channel, destination, code string) error
}

// LogSender writes codes to the log instead of delivering them. Development
// and test wiring only.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendCode(_ context.Context, channel models.Channel, destination, code string) error {
	s.logger.Info("otp code issued (dev sender, not delivered)",
		"channel", channel,
		"destination", destination,
		"code", code,
	)
	return nil
}
