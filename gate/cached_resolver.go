package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver wraps a ProfileResolver with a TTL cache keyed by subject.
type CachedResolver[S comparable] struct {
	inner ProfileResolver[S]
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[S]cacheEntry
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

func NewCachedResolver[S comparable](inner ProfileResolver[S], ttl time.Duration) *CachedResolver[S] {
	return &CachedResolver[S]{inner: inner, ttl: ttl, now: time.Now, cache: make(map[S]cacheEntry)}
}

func (r *CachedResolver[S]) Resolve(ctx context.Context, subject S) (Profile, error) {
	r.mu.RLock()
	entry, ok := r.cache[subject]
	r.mu.RUnlock()
	if ok && r.now().Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[subject] = cacheEntry{profile: profile, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return profile, nil
}

// Invalidate drops one subject, e.g. after its role changed.
func (r *CachedResolver[S]) Invalidate(subject S) {
	r.mu.Lock()
	delete(r.cache, subject)
	r.mu.Unlock()
}

// InvalidateFunc drops every subject for which match returns true.
func (r *CachedResolver[S]) InvalidateFunc(match func(S) bool) {
	r.mu.Lock()
	for s := range r.cache {
		if match(s) {
			delete(r.cache, s)
		}
	}
	r.mu.Unlock()
}

func (r *CachedResolver[S]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[S]cacheEntry)
	r.mu.Unlock()
}

// Len is the number of cached subjects.
func (r *CachedResolver[S]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
