package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "chat:session:"

// SessionStorage persists chat session identifiers in Redis. Reads slide the
// expiry so an active conversation keeps its identifier.
type SessionStorage struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStorage creates a session storage whose keys expire after ttl
func NewSessionStorage(client *Client, ttl time.Duration) *SessionStorage {
	return &SessionStorage{client: client, ttl: ttl}
}

// Get returns the identifier under key; a missing key is not an error
func (s *SessionStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.rdb.GetEx(ctx, sessionPrefix+key, s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session: %w", err)
	}
	return value, true, nil
}

// Set stores the identifier under key
func (s *SessionStorage) Set(ctx context.Context, key, value string) error {
	if err := s.client.rdb.Set(ctx, sessionPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes the identifier under key
func (s *SessionStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, sessionPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
