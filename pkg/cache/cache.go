// Package cache is a small JSON value cache with a Redis backend and an
// in-process fallback used when no Redis address is configured.
//
//	c := cache.NewRedis(rdb, "coursemart:")
//	var courses []models.Course
//	if c.Get(ctx, "courses:all", &courses) { ... }
//	_ = c.Set(ctx, "courses:all", courses, time.Minute)
//	_ = c.Del(ctx, "courses:all")
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shashiranjanraj/coursemart/pkg/metrics"
)

// Cache stores JSON-encoded values. Get reports a hit; decoding failures
// count as a miss.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Remember returns the cached value for key or calls fn, stores its result
// and returns it. Cache write failures never fail the call.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	return RememberUnless(ctx, c, key, ttl, nil, fn)
}

// RememberUnless is Remember that skips the write when stale reports true
// once fn has returned, e.g. because the source changed during the load.
func RememberUnless[T any](ctx context.Context, c Cache, key string, ttl time.Duration, stale func() bool, fn func() (T, error)) (T, error) {
	var v T
	if c.Get(ctx, key, &v) {
		metrics.CacheHits.WithLabelValues(label(key)).Inc()
		return v, nil
	}
	metrics.CacheMisses.WithLabelValues(label(key)).Inc()

	v, err := fn()
	if err != nil {
		return v, err
	}
	if stale != nil && stale() {
		return v, nil
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, nil
}

// label keeps ids out of metric labels: "course:6512..." becomes "course".
func label(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}

// ─── Memory ───────────────────────────────────────────────────────────────────

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is a process-local Cache. Expired entries are dropped lazily.
type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) bool {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return false
	}
	return json.Unmarshal(e.data, dest) == nil
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.items, k)
	}
	m.mu.Unlock()
	return nil
}

// Nop never stores anything. Used when caching is disabled (CACHE_TTL=0).
type Nop struct{}

func (Nop) Get(context.Context, string, interface{}) bool                 { return false }
func (Nop) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (Nop) Del(context.Context, ...string) error                          { return nil }
