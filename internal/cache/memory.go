package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CacheEntry is the envelope behind every memory-store key. Generation locks are
// entries too: the value is the holder task id and expiresAt is the lease end.
type CacheEntry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time // zero means no expiry
}

func (e CacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// MemoryStore is a single-process Store. It backs local development and tests; a
// horizontally scaled deployment must use the Redis store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, used by TTL tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]CacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// lookup must be called with mu held. Expired entries are dropped lazily.
func (s *MemoryStore) lookup(key string) (CacheEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return CacheEntry{}, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return CacheEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), e.Value...), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = CacheEntry{Key: key, Value: append([]byte(nil), value...), ExpiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, found := s.lookup(key)
	var current []byte
	if found {
		current = append([]byte(nil), e.Value...)
	}
	next, err := fn(current, found)
	if errors.Is(err, ErrSkipUpdate) {
		if !found {
			return nil, ErrMiss
		}
		return current, nil
	}
	if err != nil {
		return nil, err
	}
	s.entries[key] = CacheEntry{Key: key, Value: append([]byte(nil), next...), ExpiresAt: s.expiry(ttl)}
	return next, nil
}

func (s *MemoryStore) TryAcquireLock(ctx context.Context, key, holder string, lease time.Duration) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.lookup(key); ok {
		return false, string(e.Value), nil
	}
	s.entries[key] = CacheEntry{Key: key, Value: []byte(holder), ExpiresAt: s.expiry(lease)}
	return true, holder, nil
}

func (s *MemoryStore) ReleaseLock(ctx context.Context, key, holder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok || string(e.Value) != holder {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *MemoryStore) EvictExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Len reports live plus not-yet-swept entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
