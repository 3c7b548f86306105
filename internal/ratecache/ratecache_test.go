package ratecache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFetch_HitWithinTTLIssuesOneCall(t *testing.T) {
	cache := New[int](1000, 1)
	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := cache.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = cache.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Two calls within TTL, exactly one external fetch.
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_StaleEntryRefetches(t *testing.T) {
	cache := New[string](1000, 1)

	now := time.Now()
	cache.SetClock(func() time.Time { return now })

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "first", nil
		}
		return "second", nil
	}

	v, err := cache.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	// Advance past the TTL.
	now = now.Add(61 * time.Second)

	v, err = cache.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetch_FailurePropagatesAndDoesNotPoison(t *testing.T) {
	cache := New[int](1000, 1)
	boom := errors.New("boom")
	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 7, nil
	}

	_, err := cache.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.Error(t, err)
	var fe *FetchError
	assert.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "k", fe.Key)
	assert.Equal(t, 0, cache.Len())

	// The failed fetch was not cached; the next call retries cleanly.
	v, err := cache.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrFetch_IndependentKeys(t *testing.T) {
	cache := New[int](1000, 1)
	fetch := func(v int) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) { return v, nil }
	}

	a, err := cache.GetOrFetch(context.Background(), "a", time.Minute, fetch(1))
	require.NoError(t, err)
	b, err := cache.GetOrFetch(context.Background(), "b", time.Minute, fetch(2))
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 2, cache.Len())
}

func TestGetOrFetch_ConcurrentAccess(t *testing.T) {
	cache := New[int](1000, 1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%4))
			for j := 0; j < 20; j++ {
				_, err := cache.GetOrFetch(context.Background(), key, time.Minute, func(ctx context.Context) (int, error) {
					return n, nil
				})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, cache.Len())
}

func TestGetOrFetch_RateLimitSpacesMisses(t *testing.T) {
	// 10 calls per second: the second miss must wait roughly 100ms.
	cache := New[int](10, 1)
	fetch := func(ctx context.Context) (int, error) { return 1, nil }

	_, err := cache.GetOrFetch(context.Background(), "a", time.Minute, fetch)
	require.NoError(t, err)

	start := time.Now()
	_, err = cache.GetOrFetch(context.Background(), "b", time.Minute, fetch)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// A hit never waits on the limiter.
	start = time.Now()
	_, err = cache.GetOrFetch(context.Background(), "a", time.Minute, fetch)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
