package token

import (
	"context"
	"sync"
	"time"

	"alumreg/pkg/platform/sentinel"
)

// InMemoryStore keeps tokens in a map with explicit expiry timestamps. It
// backs unit tests and Redis-less deployments.
type InMemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	clock func() time.Time
}

type memoryItem struct {
	rec       Record
	expiresAt time.Time
}

// NewInMemoryStore constructs an empty in-memory token store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[string]memoryItem),
		clock: time.Now,
	}
}

// Put stores a token with the given TTL.
func (s *InMemoryStore) Put(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[token] = memoryItem{rec: rec, expiresAt: s.clock().Add(ttl)}
	return nil
}

// Get resolves a token, treating expired entries as not found.
func (s *InMemoryStore) Get(ctx context.Context, token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[token]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	if s.clock().After(item.expiresAt) {
		delete(s.items, token)
		return Record{}, sentinel.ErrNotFound
	}
	return item.rec, nil
}

// Delete removes a token.
func (s *InMemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, token)
	return nil
}
