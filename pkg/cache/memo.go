package cache

import (
	"context"
	"sync"
	"time"
)

// Memo caches the result of a slow lookup for a TTL, collapsing concurrent
// callers onto a single in-flight fetch. It is used for the backend model
// list, which is expensive to fetch and changes rarely.
type Memo[V any] struct {
	// fetch produces a fresh value
	fetch func(ctx context.Context) (V, error)

	// ttl is how long a fetched value stays fresh
	ttl time.Duration

	mu        sync.Mutex
	value     V
	fetchedAt time.Time
	valid     bool
	inflight  chan struct{} // non-nil while a fetch is running
}

// NewMemo creates a memoized lookup around fetch with the given TTL.
func NewMemo[V any](ttl time.Duration, fetch func(ctx context.Context) (V, error)) *Memo[V] {
	return &Memo[V]{fetch: fetch, ttl: ttl}
}

// Get returns the cached value if fresh, otherwise fetches a new one.
// Concurrent callers share one fetch; all of them receive its result or its
// error. A failed fetch is not cached.
func (m *Memo[V]) Get(ctx context.Context) (V, error) {
	for {
		m.mu.Lock()
		if m.valid && time.Since(m.fetchedAt) < m.ttl {
			v := m.value
			m.mu.Unlock()
			return v, nil
		}

		if m.inflight != nil {
			// Someone else is fetching; wait for them.
			wait := m.inflight
			m.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				var zero V
				return zero, ctx.Err()
			}
		}

		done := make(chan struct{})
		m.inflight = done
		m.mu.Unlock()

		v, err := m.fetch(ctx)

		m.mu.Lock()
		m.inflight = nil
		if err == nil {
			m.value = v
			m.fetchedAt = time.Now()
			m.valid = true
		}
		m.mu.Unlock()
		close(done)

		if err != nil {
			var zero V
			return zero, err
		}
		return v, nil
	}
}

// Invalidate discards the cached value so the next Get refetches.
func (m *Memo[V]) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}
