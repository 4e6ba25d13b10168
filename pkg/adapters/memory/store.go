package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// Store implements ports.TranscriptStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Transcript
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Transcript),
	}
}

// Save persists a copy of the transcript in memory.
func (s *Store) Save(ctx context.Context, dialogueID string, t *domain.Transcript) error {
	copied := t.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[dialogueID] = copied
	return nil
}

// Load retrieves a copy of the transcript so callers can't mutate the store.
func (s *Store) Load(ctx context.Context, dialogueID string) (*domain.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[dialogueID]
	if !ok {
		return nil, domain.ErrDialogueNotFound
	}
	return t.Clone(), nil
}

// Delete removes the transcript.
func (s *Store) Delete(ctx context.Context, dialogueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, dialogueID)
	return nil
}

// List returns stored dialogue IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
