package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// IdempotencyConfig holds replay and in-flight lock lifetimes.
type IdempotencyConfig struct {
	TTL     time.Duration
	LockTTL time.Duration
}

// idempotencyGate replays responses for a repeated Idempotency-Key.
// Layer 1 is the Redis cache, layer 2 the idempotency_logs table, and a
// Redis SET NX lock keeps two requests with the same key from running at once.
type idempotencyGate struct {
	repo  ports.IdempotencyRepository
	cache ports.IdempotencyCache
	lock  ports.RequestLock
	cfg   IdempotencyConfig
	log   zerolog.Logger
}

// lookup returns the stored response for key, or nil when there is none.
func (g *idempotencyGate) lookup(ctx context.Context, key string) ([]byte, error) {
	if g.cache != nil {
		cached, err := g.cache.Get(ctx, key)
		if err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return cached, nil
		}
	}

	entry, err := g.repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if entry != nil {
		return entry.ResponseJSON, nil
	}
	return nil, nil
}

// enter returns the stored response for key, or takes the in-flight lock so
// the caller can run the operation. The store is checked again once the lock
// is held: a request that waited out a finished twin replays its response.
// The returned release is non-nil whenever err is nil.
func (g *idempotencyGate) enter(ctx context.Context, key string) ([]byte, func(), error) {
	replay, err := g.lookup(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if replay != nil {
		return replay, func() {}, nil
	}

	release, err := g.acquire(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	replay, err = g.lookup(ctx, key)
	if err != nil {
		release()
		return nil, nil, err
	}
	return replay, release, nil
}

// acquire takes the in-flight lock for key. The returned release is always non-nil.
func (g *idempotencyGate) acquire(ctx context.Context, key string) (func(), error) {
	if g.lock == nil {
		return func() {}, nil
	}
	ok, err := g.lock.Acquire(ctx, key, g.cfg.LockTTL)
	if err != nil {
		// Redis down: the DB unique key still rejects a duplicate insert.
		g.log.Warn().Err(err).Str("key", key).Msg("idempotency lock unavailable")
		return func() {}, nil
	}
	if !ok {
		return nil, apperror.ErrRequestInProgress()
	}
	return func() {
		if err := g.lock.Release(context.WithoutCancel(ctx), key); err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency lock")
		}
	}, nil
}

// record writes the durable log row inside tx.
func (g *idempotencyGate) record(ctx context.Context, tx pgx.Tx, key string, accountID, resourceID uuid.UUID, body []byte) error {
	entry := &domain.IdempotencyLog{
		Key:          key,
		AccountID:    accountID,
		ResourceID:   resourceID,
		ResponseJSON: body,
		CreatedAt:    time.Now().UTC(),
	}
	if err := g.repo.Create(ctx, tx, entry); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return apperror.ErrRequestInProgress()
		}
		return apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}
	return nil
}

// remember caches body in Redis after commit (best-effort).
func (g *idempotencyGate) remember(ctx context.Context, key string, body []byte) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, body, g.cfg.TTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

// decodeReplay unmarshals a stored response into v.
func decodeReplay(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return apperror.InternalError(fmt.Errorf("unmarshal cached response: %w", err))
	}
	return nil
}
