// Package store persists onboarding applications. Implementations enforce
// optimistic concurrency: Save compares the caller's version against the
// stored one and increments it atomically, returning sentinel.ErrConflict on
// mismatch so the orchestrator can surface a reload-and-retry error.
package store

import (
	"context"
	"time"

	"konto/internal/onboarding/models"
)

type Store interface {
	// Create persists a new aggregate at version 1.
	Create(ctx context.Context, app *models.Application) error

	// FindByID rehydrates the aggregate without any buffered events.
	// Returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, id string) (*models.Application, error)

	// Save persists the aggregate iff app.Version still matches the stored
	// version, then increments both. Returns sentinel.ErrConflict when a
	// concurrent writer advanced the aggregate first.
	Save(ctx context.Context, app *models.Application) error

	// ListDueForAnonymization returns IDs of applications marked for
	// deletion whose retention window elapsed before now and which are not
	// yet anonymized.
	ListDueForAnonymization(ctx context.Context, now time.Time) ([]string, error)
}
