package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles short-lived request locks in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// Acquire attempts to take the lock for key.
// The returned token must be passed to Release; acquired is false if the lock is already held.
func (s *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// Release drops the lock for key if it is still held under token. A lock that expired and
// was taken by another request is left alone.
func (s *LockStore) Release(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, s.client, []string{lockKey(key)}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func lockKey(key string) string {
	return "lock:" + key
}
