package store

import (
	"context"
	"strings"
	"sync"

	"alumreg/internal/admin/models"
	"alumreg/pkg/platform/sentinel"
)

// InMemoryStore keeps admin users in a map guarded by a mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*models.Admin
}

// NewInMemoryStore constructs an empty in-memory admin store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byEmail: make(map[string]*models.Admin)}
}

// Create persists an admin user.
func (s *InMemoryStore) Create(ctx context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(admin.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *admin
	s.byEmail[key] = &cp
	return nil
}

// FindByEmail retrieves an admin by email, case-insensitively.
func (s *InMemoryStore) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *admin
	return &cp, nil
}
