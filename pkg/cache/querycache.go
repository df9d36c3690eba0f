package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
)

// DefaultEntryTTL is the hard expiry for stored entries. Staleness below this
// is decided per-read via staleTime; entries older than this are gone entirely.
const DefaultEntryTTL = 10 * time.Minute

// entry is the stored representation of one cached query result
type entry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

type fetchFailure struct {
	err error
	at  time.Time
}

// StatsRecorder observes cache effectiveness. A hit is a read served from a
// fresh entry; a miss is a read that ran its fetch.
type StatsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// QueryCache is a read-through query cache keyed by entity kind plus
// serialized filter parameters. Concurrent reads for the same key share one
// in-flight fetch, and fetch errors are remembered per key so every consumer
// of that key observes the same failure until the next refetch window.
//
// The cache is injected explicitly (never a package-level singleton) so tests
// can substitute a backend with deterministic timing.
type QueryCache struct {
	store domain.CacheRepository
	log   logger.Logger
	stats StatsRecorder
	group singleflight.Group

	mu         sync.Mutex
	failures   map[string]fetchFailure
	refreshers map[string]context.CancelFunc

	entryTTL time.Duration
	now      func() time.Time
}

// NewQueryCache creates a query cache on top of a cache backend
func NewQueryCache(store domain.CacheRepository, log logger.Logger) *QueryCache {
	return &QueryCache{
		store:      store,
		log:        log,
		failures:   make(map[string]fetchFailure),
		refreshers: make(map[string]context.CancelFunc),
		entryTTL:   DefaultEntryTTL,
		now:        time.Now,
	}
}

// WithStats attaches a hit/miss recorder and returns the cache for chaining.
// Reads on a cache without one record nothing.
func (q *QueryCache) WithStats(stats StatsRecorder) *QueryCache {
	q.stats = stats
	return q
}

func (q *QueryCache) recordHit() {
	if q.stats != nil {
		q.stats.RecordCacheHit()
	}
}

func (q *QueryCache) recordMiss() {
	if q.stats != nil {
		q.stats.RecordCacheMiss()
	}
}

// Read returns the cached payload for key when it is younger than staleTime,
// otherwise invokes fetch, stores the result and returns it. A fetch error is
// remembered for the key and returned, without retrying, until staleTime
// elapses or the key is invalidated.
func (q *QueryCache) Read(ctx context.Context, key string, staleTime time.Duration, fetch func(context.Context) (interface{}, error)) (json.RawMessage, error) {
	if data, ok := q.fresh(ctx, key, staleTime); ok {
		q.recordHit()
		return data, nil
	}

	if err := q.recentFailure(key, staleTime); err != nil {
		return nil, err
	}

	// Coalesce concurrent fetches for an identical key
	v, err, _ := q.group.Do(key, func() (interface{}, error) {
		// A racing caller may have completed the fetch while this one
		// waited on the flight group
		if data, ok := q.fresh(ctx, key, staleTime); ok {
			q.recordHit()
			return data, nil
		}

		q.recordMiss()
		result, err := fetch(ctx)
		if err != nil {
			q.recordFailure(key, err)
			return nil, err
		}

		data, err := q.storeEntry(ctx, key, result)
		if err != nil {
			return nil, err
		}

		q.clearFailure(key)
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(json.RawMessage), nil
}

// Invalidate marks every cached entry under the given key prefix stale by
// deleting it, so the next read by any consumer refetches. Remembered fetch
// failures under the prefix are cleared as well.
func (q *QueryCache) Invalidate(ctx context.Context, prefix string) error {
	if err := q.store.DeletePattern(ctx, prefix+"*"); err != nil {
		return fmt.Errorf("failed invalidating prefix %q: %w", prefix, err)
	}

	q.mu.Lock()
	for key := range q.failures {
		if strings.HasPrefix(key, prefix) {
			delete(q.failures, key)
		}
	}
	q.mu.Unlock()

	return nil
}

// StartRefresh begins refreshing key in the background at the given interval
// until StopRefresh is called or ctx is cancelled. Starting a refresher for a
// key that already has one is a no-op, so callers re-binding on every request
// do not stack duplicate timers.
func (q *QueryCache) StartRefresh(ctx context.Context, key string, interval time.Duration, fetch func(context.Context) (interface{}, error)) {
	q.mu.Lock()
	if _, running := q.refreshers[key]; running {
		q.mu.Unlock()
		return
	}
	refreshCtx, cancel := context.WithCancel(ctx)
	q.refreshers[key] = cancel
	q.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				result, err := fetch(refreshCtx)
				if err != nil {
					q.log.Warn("background refresh failed", "key", key, "error", err)
					continue
				}
				if _, err := q.storeEntry(refreshCtx, key, result); err != nil {
					q.log.Warn("background refresh store failed", "key", key, "error", err)
				}
			}
		}
	}()
}

// StopRefresh cancels the background refresher for key, if any
func (q *QueryCache) StopRefresh(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cancel, ok := q.refreshers[key]; ok {
		cancel()
		delete(q.refreshers, key)
	}
}

func (q *QueryCache) fresh(ctx context.Context, key string, staleTime time.Duration) (json.RawMessage, bool) {
	raw, err := q.store.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false
	}

	if q.now().Sub(e.FetchedAt) > staleTime {
		return nil, false
	}

	return e.Data, true
}

func (q *QueryCache) storeEntry(ctx context.Context, key string, result interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed encoding cache entry: %w", err)
	}

	encoded, err := json.Marshal(entry{Data: data, FetchedAt: q.now()})
	if err != nil {
		return nil, fmt.Errorf("failed encoding cache envelope: %w", err)
	}

	if err := q.store.Set(ctx, key, string(encoded), q.entryTTL); err != nil {
		// A write failure degrades to uncached behavior; the fetched
		// result is still valid for this caller
		q.log.Warn("cache write failed", "key", key, "error", err)
	}

	return data, nil
}

func (q *QueryCache) recentFailure(key string, staleTime time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, ok := q.failures[key]
	if !ok {
		return nil
	}
	if q.now().Sub(f.at) > staleTime {
		delete(q.failures, key)
		return nil
	}
	return f.err
}

func (q *QueryCache) recordFailure(key string, err error) {
	q.mu.Lock()
	q.failures[key] = fetchFailure{err: err, at: q.now()}
	q.mu.Unlock()
}

func (q *QueryCache) clearFailure(key string) {
	q.mu.Lock()
	delete(q.failures, key)
	q.mu.Unlock()
}

// ReadThrough reads a typed value through the cache. The zero value of T is
// returned alongside any error.
func ReadThrough[T any](ctx context.Context, q *QueryCache, key string, staleTime time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	data, err := q.Read(ctx, key, staleTime, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("failed decoding cache entry: %w", err)
	}
	return out, nil
}
