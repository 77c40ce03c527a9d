package otp

import (
	"context"
	"sync"

	"konto/internal/onboarding/models"
	"konto/pkg/platform/sentinel"
	"konto/pkg/requestcontext"
)

// InMemoryStore keeps challenges in process memory. The mutex serializes
// attempt increments, matching what the SQL store gets from an atomic UPDATE.
type InMemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
	order      []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{challenges: make(map[string]*Challenge)}
}

func (s *InMemoryStore) Create(_ context.Context, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *challenge
	s.challenges[challenge.ID] = &copied
	s.order = append(s.order, challenge.ID)
	return nil
}

func (s *InMemoryStore) FindLatest(_ context.Context, applicationID string, channel models.Channel) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.challenges[s.order[i]]
		if c.ApplicationID == applicationID && c.Channel == channel {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) MarkStatus(ctx context.Context, id string, status ChallengeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	if status == ChallengeStatusVerified {
		verifiedAt := requestcontext.Now(ctx)
		c.VerifiedAt = &verifiedAt
	}
	return nil
}

func (s *InMemoryStore) IncrementAttempts(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	c.Attempts++
	return c.Attempts, nil
}
