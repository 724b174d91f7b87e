// Package token issues and redeems single-use email verification tokens.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"alumreg/pkg/domain"
)

// Record is what a token resolves to.
type Record struct {
	RegistrationID domain.RegistrationID `json:"registration_id"`
	Email          string                `json:"email"`
}

// Store persists tokens with a TTL. Get returns sentinel.ErrNotFound for
// unknown or expired tokens.
type Store interface {
	Put(ctx context.Context, token string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, token string) (Record, error)
	Delete(ctx context.Context, token string) error
}

// Service issues and consumes verification tokens.
type Service struct {
	store Store
	ttl   time.Duration
}

// NewService constructs a token service with the given lifetime.
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl}
}

// Issue creates a fresh token bound to a registration and its email.
func (s *Service) Issue(ctx context.Context, id domain.RegistrationID, email string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	tok := hex.EncodeToString(buf)

	if err := s.store.Put(ctx, tok, Record{RegistrationID: id, Email: email}, s.ttl); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return tok, nil
}

// Consume resolves a token and invalidates it. A token verifies exactly one
// registration exactly once.
func (s *Service) Consume(ctx context.Context, tok string) (Record, error) {
	rec, err := s.store.Get(ctx, tok)
	if err != nil {
		return Record{}, err
	}
	if err := s.store.Delete(ctx, tok); err != nil {
		return Record{}, fmt.Errorf("invalidate verification token: %w", err)
	}
	return rec, nil
}
