package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RequestLock implements ports.RequestLock using Redis SET NX.
// It stops two requests with the same idempotency key from running at once.
type RequestLock struct {
	client *goredis.Client
	prefix string
}

// NewRequestLock creates a new Redis-backed request lock.
func NewRequestLock(client *goredis.Client) *RequestLock {
	return &RequestLock{
		client: client,
		prefix: "idem:lock:",
	}
}

// Acquire atomically takes key for ttl. Returns false if it is already held.
func (l *RequestLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Key already exists, another request holds it
			return false, nil
		}
		return false, fmt.Errorf("redis lock acquire: %w", err)
	}
	return result == "OK", nil
}

// Release frees key. Releasing a lock that already expired is not an error.
func (l *RequestLock) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}
