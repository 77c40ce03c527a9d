// Package events defines the domain-event publishing port. The orchestrator
// drains aggregate event buffers after a successful save and hands the batch
// here; delivery is at-least-once and FIFO per aggregate within one batch.
package events

import (
	"context"
	"log/slog"
	"sync"

	"konto/internal/onboarding/models"
)

// Publisher pushes drained domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, events []models.DomainEvent) error
}

// LogPublisher writes events to the log. Development fallback when no broker
// is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, batch []models.DomainEvent) error {
	for _, event := range batch {
		p.logger.Info("domain event",
			"event", event.EventName(),
			"aggregate_id", event.AggregateID(),
			"occurred_at", event.OccurredAt(),
		)
	}
	return nil
}

// InMemoryPublisher collects events for inspection in tests.
type InMemoryPublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Publish(_ context.Context, batch []models.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, batch...)
	return nil
}

// Events returns everything published so far.
func (p *InMemoryPublisher) Events() []models.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}
