// Package kafka publishes domain events to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"konto/internal/onboarding/models"
	"konto/internal/platform/config"
)

// Publisher produces one record per domain event, keyed by aggregate ID so a
// single application's events land on one partition in order. The producer is
// idempotent (franz-go default), giving at-least-once delivery without
// reordering on retry.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the brokers and ensures the topic exists.
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	// CreateTopics is a no-op error when the topic already exists; anything
	// else surfaces at first produce, so bootstrap failures are logged only.
	if _, err := admin.CreateTopics(context.Background(), 1, 1, nil, cfg.Topic); err != nil {
		logger.Warn("kafka topic bootstrap failed", "topic", cfg.Topic, "error", err)
	}

	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

type envelope struct {
	Event       string          `json:"event"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
}

// Publish produces the batch synchronously. ProduceSync preserves the batch
// order per key and returns the first delivery error.
func (p *Publisher) Publish(ctx context.Context, batch []models.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(batch))
	for _, event := range batch {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.EventName(), err)
		}
		value, err := json.Marshal(envelope{
			Event:       event.EventName(),
			AggregateID: event.AggregateID(),
			Payload:     payload,
		})
		if err != nil {
			return fmt.Errorf("marshal envelope %s: %w", event.EventName(), err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(event.AggregateID()),
			Value: value,
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce events: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (p *Publisher) Close() {
	p.client.Close()
}
