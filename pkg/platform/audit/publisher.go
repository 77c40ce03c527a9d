package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands audit events to a buffered channel consumed by the Worker.
// Record never blocks and never returns an error: a full queue or a dead
// worker degrades to a log line instead of failing the operation being
// audited.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

// Record enqueues the event, dropping it with a log line when the queue is
// full.
func (p *Publisher) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.ErrorContext(ctx, "audit queue full, event dropped",
			"action", event.Action,
			"application_id", event.ApplicationID,
		)
	}
}
