// Package documents defines the byte-storage port for uploaded identity
// documents. The aggregate keeps only the opaque reference; anonymization
// relies on this collaborator to delete the underlying content.
package documents

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"konto/pkg/platform/sentinel"
)

// BlobStore stores document bytes and returns an opaque reference.
type BlobStore interface {
	Store(ctx context.Context, content []byte, filename, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// InMemoryBlobStore backs dev mode and tests.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryBlobStore) Store(_ context.Context, content []byte, filename, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := fmt.Sprintf("mem://%s/%s", uuid.NewString(), filename)
	copied := make([]byte, len(content))
	copy(copied, content)
	s.blobs[ref] = copied
	return ref, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.blobs, ref)
	return nil
}
