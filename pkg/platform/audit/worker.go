package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and persists them. Store
// failures are logged and the worker keeps draining; an audit write must
// never take the pipeline down with it.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(context.WithoutCancel(ctx), event); err != nil {
				w.logger.Error("audit append failed",
					"action", event.Action,
					"application_id", event.ApplicationID,
					"error", err,
				)
			}
		}
	}
}
