// Package memory holds in-process adapters used when Redis is not wanted,
// such as single-node development setups.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"usedcar-market/internal/core/ports"

	"github.com/ulule/limiter/v3"
	memstore "github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimitStore implements ports.RateLimitStore on top of ulule/limiter's
// in-memory store. One limiter is kept per distinct (limit, window) pair.
type RateLimitStore struct {
	store limiter.Store

	mu       sync.Mutex
	limiters map[string]*limiter.Limiter
}

// NewRateLimitStore creates a new in-memory rate limit store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{
		store: memstore.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          "ratelimit",
			CleanUpInterval: time.Minute,
		}),
		limiters: make(map[string]*limiter.Limiter),
	}
}

// Allow checks if a request is within the rate limit.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	rateKey := fmt.Sprintf("%d/%s", limit, window)
	l := s.limiterFor(rateKey, limit, window)

	lctx, err := l.Get(ctx, rateKey+":"+key)
	if err != nil {
		return nil, fmt.Errorf("memory rate limit get: %w", err)
	}

	return &ports.RateLimitResult{
		Allowed:   !lctx.Reached,
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		ResetAt:   lctx.Reset,
	}, nil
}

func (s *RateLimitStore) limiterFor(rateKey string, limit int64, window time.Duration) *limiter.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[rateKey]
	if !ok {
		l = limiter.New(s.store, limiter.Rate{Period: window, Limit: limit})
		s.limiters[rateKey] = l
	}
	return l
}
