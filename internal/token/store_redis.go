package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"alumreg/internal/platform/redis"
	"alumreg/pkg/platform/sentinel"
)

const keyPrefix = "verify:token:"

// RedisStore keeps verification tokens in Redis so they survive restarts and
// expire server-side via TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed token store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores a token with the given TTL.
func (s *RedisStore) Put(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Get resolves a token. Expired keys vanish from Redis, so expiry and
// not-found are the same outcome here.
func (s *RedisStore) Get(ctx context.Context, token string) (Record, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("fetch token: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal token record: %w", err)
	}
	return rec, nil
}

// Delete removes a token.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
