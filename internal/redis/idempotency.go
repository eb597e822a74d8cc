package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseStore keeps idempotent HTTP responses in Redis.
type ResponseStore struct {
	client *redis.Client
}

// NewResponseStore creates a new ResponseStore.
func NewResponseStore(client *redis.Client) *ResponseStore {
	return &ResponseStore{client: client}
}

// Get returns the stored response, or nil on a miss.
func (s *ResponseStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// Set stores data unless a response for key already exists.
func (s *ResponseStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.SetNX(ctx, key, data, ttl).Err()
}
