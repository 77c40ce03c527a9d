// Package rate throttles code issuance per (application, channel). Verification
// attempts are bounded on the challenge itself; this limiter only guards the
// send path against notification abuse.
package rate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "konto/pkg/domain-errors"
)

// Limiter counts issuances in a fixed redis window. A nil client disables
// limiting, which keeps single-process dev and test wiring free of redis.
type Limiter struct {
	client      *redis.Client
	window      time.Duration
	maxInWindow int
	log         *slog.Logger
}

func NewLimiter(client *redis.Client, window time.Duration, maxInWindow int, log *slog.Logger) *Limiter {
	return &Limiter{client: client, window: window, maxInWindow: maxInWindow, log: log}
}

// Allow returns CodeTooManyRequests once the window budget is exhausted.
// Redis errors fail open: a broken limiter must not stop onboarding.
// The increment and the TTL travel in one pipeline, with ExpireNX on every
// call, so a counter can never outlive its window even if an earlier call
// died between the two commands.
func (l *Limiter) Allow(ctx context.Context, applicationID, channel string) error {
	if l.client == nil {
		return nil
	}
	key := fmt.Sprintf("otp:sends:%s:%s", applicationID, channel)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("otp send limiter unavailable, allowing send", "error", err)
		return nil
	}
	if int(incr.Val()) > l.maxInWindow {
		return dErrors.Newf(dErrors.CodeTooManyRequests,
			"too many codes requested; try again within %s", l.window)
	}
	return nil
}
