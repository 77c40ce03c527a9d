package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecord(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("enqueues and defaults the timestamp", func(t *testing.T) {
		inbox := make(chan Event, 1)
		p := NewPublisher(inbox, logger)

		p.Record(context.Background(), Event{Action: EventOtpIssued, ApplicationID: "app-1"})

		event := <-inbox
		assert.Equal(t, EventOtpIssued, event.Action)
		assert.False(t, event.Timestamp.IsZero())
	})

	t.Run("full queue drops instead of blocking", func(t *testing.T) {
		inbox := make(chan Event) // unbuffered, nobody reading
		p := NewPublisher(inbox, logger)

		done := make(chan struct{})
		go func() {
			p.Record(context.Background(), Event{Action: EventOtpIssued})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Record blocked on a full queue")
		}
	})
}

// flakyStore fails the first append, then recovers.
type flakyStore struct {
	mu     sync.Mutex
	failed bool
	events []Event
}

func (s *flakyStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failed {
		s.failed = true
		return errors.New("disk on fire")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *flakyStore) ListByApplication(_ context.Context, applicationID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestWorkerKeepsDrainingAfterStoreFailure(t *testing.T) {
	store := &flakyStore{}
	inbox := make(chan Event, 4)
	worker := NewWorker(store, inbox, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{Action: EventApplicationCreated, ApplicationID: "app-1"} // fails
	inbox <- Event{Action: EventApplicationSubmitted, ApplicationID: "app-1"}

	require.Eventually(t, func() bool {
		events, err := store.ListByApplication(context.Background(), "app-1")
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestInMemoryStoreFiltersByApplication(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Event{ApplicationID: "app-1", Action: EventApplicationCreated}))
	require.NoError(t, store.Append(ctx, Event{ApplicationID: "app-2", Action: EventApplicationCreated}))
	require.NoError(t, store.Append(ctx, Event{ApplicationID: "app-1", Action: EventApplicationSubmitted}))

	events, err := store.ListByApplication(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventApplicationSubmitted, events[1].Action)
}
