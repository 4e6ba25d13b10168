package middleware_test

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Transcript
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Transcript),
	}
}

func (s *MockStore) Save(ctx context.Context, dialogueID string, t *domain.Transcript) error {
	s.data[dialogueID] = t
	return nil
}

func (s *MockStore) Load(ctx context.Context, dialogueID string) (*domain.Transcript, error) {
	t, ok := s.data[dialogueID]
	if !ok {
		return nil, domain.ErrDialogueNotFound
	}
	return t, nil
}

func (s *MockStore) Delete(ctx context.Context, dialogueID string) error {
	delete(s.data, dialogueID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.TranscriptStore = (*MockStore)(nil)
