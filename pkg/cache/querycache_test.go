package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/backend/pkg/logger"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return &Client{Redis: redisClient}, mr
}

func setupQueryCache(t *testing.T) (*QueryCache, *miniredis.Miniredis) {
	client, mr := setupTestRedis(t)
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewQueryCache(client, logger.Default()), mr
}

type countingStats struct {
	hits   int32
	misses int32
}

func (c *countingStats) RecordCacheHit()  { atomic.AddInt32(&c.hits, 1) }
func (c *countingStats) RecordCacheMiss() { atomic.AddInt32(&c.misses, 1) }

func TestQueryCache_RecordsHitsAndMisses(t *testing.T) {
	q, _ := setupQueryCache(t)
	stats := &countingStats{}
	q.WithStats(stats)
	ctx := context.Background()

	fetch := func(ctx context.Context) (interface{}, error) { return "v", nil }

	// Cold read runs the fetch
	_, err := q.Read(ctx, "leads:list:all", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&stats.hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stats.misses))

	// Fresh read is served from the cache
	_, err = q.Read(ctx, "leads:list:all", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stats.hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stats.misses))

	// Invalidation forces a refetch, counted as a second miss
	require.NoError(t, q.Invalidate(ctx, "leads:"))
	_, err = q.Read(ctx, "leads:list:all", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stats.misses))
}

func TestQueryCache_NoStatsRecorderIsSafe(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx := context.Background()

	_, err := q.Read(ctx, "users:list", time.Minute, func(ctx context.Context) (interface{}, error) {
		return "v", nil
	})
	require.NoError(t, err)

	_, err = q.Read(ctx, "users:list", time.Minute, func(ctx context.Context) (interface{}, error) {
		return "v", nil
	})
	require.NoError(t, err)
}

func TestQueryCache_ReadThroughAndFreshHit(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx := context.Background()

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"a", "b"}, nil
	}

	data, err := q.Read(ctx, "followups:list:agent=1", time.Minute, fetch)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	// Second read within staleTime must not refetch
	data, err = q.Read(ctx, "followups:list:agent=1", time.Minute, fetch)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueryCache_StaleEntryRefetches(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx := context.Background()

	current := time.Now()
	q.now = func() time.Time { return current }

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}

	_, err := q.Read(ctx, "leads:list", 30*time.Second, fetch)
	require.NoError(t, err)

	// Advance past staleTime
	current = current.Add(time.Minute)

	_, err = q.Read(ctx, "leads:list", 30*time.Second, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueryCache_CoalescesConcurrentReads(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const readers = 8
	var wg sync.WaitGroup
	results := make([]error, readers)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := q.Read(ctx, "meetings:list", time.Minute, fetch)
			results[i] = err
		}(i)
	}

	// Let all readers pile onto the same in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range results {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "identical concurrent reads must share one fetch")
}

func TestQueryCache_FetchErrorIsCachedPerKey(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx := context.Background()

	var calls int32
	boom := errors.New("backend unavailable")
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	}

	_, err := q.Read(ctx, "tickets:list", time.Minute, fetch)
	require.ErrorIs(t, err, boom)

	// The failure is surfaced again without retrying
	_, err = q.Read(ctx, "tickets:list", time.Minute, fetch)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Invalidation clears the remembered failure
	require.NoError(t, q.Invalidate(ctx, "tickets:"))
	fetchOK := func(ctx context.Context) (interface{}, error) {
		return "recovered", nil
	}
	data, err := q.Read(ctx, "tickets:list", time.Minute, fetchOK)
	require.NoError(t, err)
	assert.JSONEq(t, `"recovered"`, string(data))
}

func TestQueryCache_InvalidatePrefix(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx := context.Background()

	var followupCalls, leadCalls int32

	_, err := q.Read(ctx, "followups:list:a", time.Minute, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&followupCalls, 1)
		return 1, nil
	})
	require.NoError(t, err)

	_, err = q.Read(ctx, "leads:list", time.Minute, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&leadCalls, 1)
		return 2, nil
	})
	require.NoError(t, err)

	require.NoError(t, q.Invalidate(ctx, "followups:"))

	// Invalidated prefix refetches, the other key does not
	_, err = q.Read(ctx, "followups:list:a", time.Minute, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&followupCalls, 1)
		return 1, nil
	})
	require.NoError(t, err)

	_, err = q.Read(ctx, "leads:list", time.Minute, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&leadCalls, 1)
		return 2, nil
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&followupCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&leadCalls))
}

func TestQueryCache_IdenticalReadsReturnIdenticalSequences(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx := context.Background()

	fetch := func(ctx context.Context) ([]string, error) {
		return []string{"x", "y", "z"}, nil
	}

	first, err := ReadThrough(ctx, q, "todos:list", time.Minute, fetch)
	require.NoError(t, err)

	second, err := ReadThrough(ctx, q, "todos:list", time.Minute, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQueryCache_StartRefreshIsIdempotentPerKey(t *testing.T) {
	q, _ := setupQueryCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "tick", nil
	}

	// Binding twice must not stack duplicate timers
	q.StartRefresh(ctx, "notifications:user1", 20*time.Millisecond, fetch)
	q.StartRefresh(ctx, "notifications:user1", 20*time.Millisecond, fetch)

	time.Sleep(110 * time.Millisecond)
	q.StopRefresh("notifications:user1")
	got := atomic.LoadInt32(&calls)

	// A duplicated ticker would have roughly doubled the call count
	assert.GreaterOrEqual(t, got, int32(3))
	assert.LessOrEqual(t, got, int32(7))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, got, atomic.LoadInt32(&calls), "refresh must stop after StopRefresh")
}
