// Package sequence implements the two-tier document sequence allocator:
// a cache-backed atomic counter for latency and a durable counter table
// for correctness across restarts and cache eviction. The two paths have
// different failure and reconciliation semantics and are deliberately
// kept separate.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/shared"
	"github.com/poscore/backend/internal/infrastructure/cache"
)

// Allocator issues strictly increasing sequence values per
// (tenant, document type, period).
//
// Fast path: an atomic cache increment. The first increment observed for
// a fresh key triggers a one-time reconciliation against the durable
// floor, so an evicted or restarted counter can never reissue a number
// already on record. If reconciliation itself fails, the unreconciled
// value is returned with a warning; availability wins only there, never
// during normal increments.
//
// Fallback path: when the cache is unavailable, the durable counter row
// is incremented in a single atomic statement. Slower but always correct.
type Allocator struct {
	cache    cache.CounterCache
	counters numbering.CounterRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewAllocator creates a two-tier sequence allocator
func NewAllocator(counterCache cache.CounterCache, counters numbering.CounterRepository, logger *zap.Logger) *Allocator {
	return &Allocator{
		cache:    counterCache,
		counters: counters,
		logger:   logger,
		now:      time.Now,
	}
}

// Next returns the next sequence value for the given key
func (a *Allocator) Next(ctx context.Context, tenantID uuid.UUID, docType numbering.DocType, period numbering.Period) (int64, error) {
	key := cacheKey(tenantID, docType, period.Key)
	ttl := period.CacheTTL(a.now())

	value, err := a.cache.Increment(ctx, key, ttl)
	if err != nil {
		a.logger.Warn("sequence cache unavailable, falling back to durable counter",
			zap.String("key", key),
			zap.Error(err),
		)
		return a.durableNext(ctx, tenantID, docType, period.Key)
	}

	if value == 1 {
		return a.reconcile(ctx, tenantID, docType, period, key, ttl, value)
	}
	return value, nil
}

// reconcile fast-forwards a fresh cache counter past the durable floor.
// Runs at most once per cache lifetime of a key.
func (a *Allocator) reconcile(ctx context.Context, tenantID uuid.UUID, docType numbering.DocType, period numbering.Period, key string, ttl time.Duration, value int64) (int64, error) {
	floor, err := a.counters.CurrentValue(ctx, tenantID, docType, period.Key)
	if err != nil {
		a.logger.Warn("sequence reconciliation failed, issuing unreconciled value",
			zap.String("key", key),
			zap.Int64("value", value),
			zap.Error(err),
		)
		return value, nil
	}
	if floor < value {
		return value, nil
	}

	forwarded, err := a.cache.FastForward(ctx, key, floor, ttl)
	if err != nil {
		// Cache dropped out between the increment and the fast-forward.
		a.logger.Warn("sequence fast-forward failed, falling back to durable counter",
			zap.String("key", key),
			zap.Error(err),
		)
		return a.durableNext(ctx, tenantID, docType, period.Key)
	}

	a.logger.Info("sequence counter reconciled from durable floor",
		zap.String("key", key),
		zap.Int64("floor", floor),
		zap.Int64("value", forwarded),
	)
	return forwarded, nil
}

// durableNext increments the durable counter row. This only runs when
// the cache path already failed, so a failure here means no tier can
// issue a number.
func (a *Allocator) durableNext(ctx context.Context, tenantID uuid.UUID, docType numbering.DocType, periodKey string) (int64, error) {
	value, err := a.counters.NextValue(ctx, tenantID, docType, periodKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrDurableStoreUnavailable, err)
	}
	return value, nil
}

// cacheKey builds the cache key for one counter
func cacheKey(tenantID uuid.UUID, docType numbering.DocType, periodKey string) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, docType, periodKey)
}

// Ensure Allocator implements numbering.Allocator
var _ numbering.Allocator = (*Allocator)(nil)
