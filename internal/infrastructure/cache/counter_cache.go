package cache

import (
	"context"
	"time"
)

// CounterCache is the fast path for sequence allocation: a shared mutable
// counter that only atomic operations may touch. Implementations must
// guarantee that two concurrent Increment calls on the same key never
// observe the same value.
type CounterCache interface {
	// Increment atomically increments the counter and returns the new
	// value. A fresh key starts at zero, so the first increment returns 1.
	// The TTL is applied (or refreshed) on every call.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// FastForward raises the counter to at least floor and then increments
	// it, returning the new value. Used once per fresh key to reconcile the
	// cache against the durable numbering floor; a floor at or below the
	// current value leaves the counter untouched apart from the increment.
	FastForward(ctx context.Context, key string, floor int64, ttl time.Duration) (int64, error)
}
