// Package ratecache provides a read-through cache with per-channel request
// throttling. Every external data accessor in the bot goes through one of
// these: a fresh cache hit costs nothing, a miss waits out the channel's
// minimum call spacing before fetching.
package ratecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FetchError wraps a failure from the underlying fetch function. The cache
// never swallows fetch failures and never stores them; the next call for
// the same key retries cleanly.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for key %q: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Cache is a time-boxed memoized lookup guarded by a rate limiter. One Cache
// instance represents one logical channel (price calls, social calls, RPC
// calls), so spacing on one channel never delays another.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a cache whose misses are spaced at most rps calls per second.
func New[T any](rps float64, burst int) *Cache[T] {
	if burst < 1 {
		burst = 1
	}
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		now:     time.Now,
	}
}

// GetOrFetch returns the cached value for key if it is younger than ttl.
// Otherwise it waits for the channel's rate limiter, invokes fetch, stores
// the result and returns it. Fetch failures propagate as *FetchError and do
// not poison the entry.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.fetchedAt) < ttl {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	// The lock is not held across the limiter wait or the fetch, so two
	// assets racing on different keys do not serialize on each other's
	// network calls.
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	value, err := fetch(ctx)
	if err != nil {
		return zero, &FetchError{Key: key, Err: err}
	}

	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, fetchedAt: c.now()}
	c.mu.Unlock()

	return value, nil
}

// Invalidate drops the entry for key, forcing the next call to fetch.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SetClock replaces the cache's time source. Used by tests to expire
// entries without sleeping.
func (c *Cache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
