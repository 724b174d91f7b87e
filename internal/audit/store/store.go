package store

import (
	"context"
	"sort"
	"sync"

	"alumreg/internal/audit/models"
	"alumreg/pkg/domain"
)

// InMemoryStore keeps audit entries in a map guarded by a mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.RegistrationID][]*models.Entry
}

// NewInMemoryStore constructs an empty in-memory audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.RegistrationID][]*models.Entry)}
}

// Append records an entry.
func (s *InMemoryStore) Append(ctx context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.entries[entry.RegistrationID] = append(s.entries[entry.RegistrationID], &cp)
	return nil
}

// ListByRegistration returns a registration's trail, oldest first.
func (s *InMemoryStore) ListByRegistration(ctx context.Context, id domain.RegistrationID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[id]
	result := make([]*models.Entry, 0, len(stored))
	for _, e := range stored {
		cp := *e
		result = append(result, &cp)
	}
	// Stable so entries written in the same instant keep insertion order.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
