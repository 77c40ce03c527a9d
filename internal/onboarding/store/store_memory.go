package store

import (
	"context"
	"sync"
	"time"

	"konto/internal/onboarding/models"
	"konto/pkg/platform/sentinel"
)

// InMemoryStore keeps aggregates in process memory. It deep-copies on the way
// in and out so callers can never mutate stored state except through Save,
// and it applies the same version compare-and-increment as the SQL store.
type InMemoryStore struct {
	mu           sync.RWMutex
	applications map[string]*models.Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{applications: make(map[string]*models.Application)}
}

func (s *InMemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[app.ID]; exists {
		return sentinel.ErrConflict
	}
	app.Version = 1
	s.applications[app.ID] = clone(app)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.applications[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(stored), nil
}

func (s *InMemoryStore) Save(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.applications[app.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != app.Version {
		return sentinel.ErrConflict
	}
	app.Version++
	s.applications[app.ID] = clone(app)
	return nil
}

func (s *InMemoryStore) ListDueForAnonymization(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []string
	for id, app := range s.applications {
		if app.MarkedForDeletion && !app.Anonymized &&
			app.DataRetentionUntil != nil && !now.Before(*app.DataRetentionUntil) {
			due = append(due, id)
		}
	}
	return due, nil
}

// clone deep-copies the aggregate, dropping any buffered events: stored state
// reflects persisted facts only.
func clone(app *models.Application) *models.Application {
	copied := *app
	copied.Documents = append([]models.Document(nil), app.Documents...)
	copied.Consents = append([]models.Consent(nil), app.Consents...)
	copied.RestoreEvents(nil)
	return &copied
}
