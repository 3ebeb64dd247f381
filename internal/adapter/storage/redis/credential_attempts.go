package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// CredentialAttempts implements ports.CredentialAttemptTracker.
// Each account has one counter whose TTL is the lockout window, started by
// the first wrong payment password.
type CredentialAttempts struct {
	client *goredis.Client
	prefix string
}

// NewCredentialAttempts creates a new Redis-backed attempt tracker.
func NewCredentialAttempts(client *goredis.Client) *CredentialAttempts {
	return &CredentialAttempts{
		client: client,
		prefix: "paypwd:fail:",
	}
}

// Failures returns the wrong attempts recorded in the current window.
func (c *CredentialAttempts) Failures(ctx context.Context, accountID uuid.UUID) (int64, error) {
	n, err := c.client.Get(ctx, c.prefix+accountID.String()).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis attempts get: %w", err)
	}
	return n, nil
}

// RecordFailure increments the counter and returns the new count.
// INCR and EXPIRE NX go out in one MULTI/EXEC, detached from request
// cancellation, so a counter never exists without a TTL. NX starts the window
// on the first failure and never extends it.
func (c *CredentialAttempts) RecordFailure(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error) {
	key := c.prefix + accountID.String()
	ctx = context.WithoutCancel(ctx)

	var incr *goredis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis attempts record: %w", err)
	}
	return incr.Val(), nil
}

// Reset clears the counter after a correct payment password.
func (c *CredentialAttempts) Reset(ctx context.Context, accountID uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+accountID.String()).Err(); err != nil {
		return fmt.Errorf("redis attempts reset: %w", err)
	}
	return nil
}
