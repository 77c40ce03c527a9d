package rate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilClientAllowsEverything(t *testing.T) {
	limiter := NewLimiter(nil, time.Hour, 1, slog.New(slog.DiscardHandler))
	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.Allow(context.Background(), "app-1", "EMAIL"))
	}
}
