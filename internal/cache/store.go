package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMiss is returned by Get for absent or expired keys.
	ErrMiss = errors.New("cache: miss")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("cache: store unavailable")
	// ErrSkipUpdate may be returned from an UpdateFunc to leave the key untouched.
	ErrSkipUpdate = errors.New("cache: skip update")
)

// UpdateFunc receives the current value (found=false on miss) and returns the value to
// write. It may be invoked more than once when a concurrent writer wins the race.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Store is the single source of truth shared by every API process, worker and the
// scheduler. Every operation is atomic with respect to concurrent callers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value with a time-to-live. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Update performs an atomic read-modify-write and returns the value now stored.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) ([]byte, error)
	// TryAcquireLock claims key for holder for the lease duration. When the lock is
	// already held it returns false and the current holder.
	TryAcquireLock(ctx context.Context, key, holder string, lease time.Duration) (bool, string, error)
	// ReleaseLock deletes key only while holder still owns it.
	ReleaseLock(ctx context.Context, key, holder string) (bool, error)
	// EvictExpired eagerly drops expired entries and reports how many were removed.
	EvictExpired(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// UpdateJSON is Update over a JSON-encoded value of type T. fn gets nil on miss.
func UpdateJSON[T any](ctx context.Context, s Store, key string, ttl time.Duration, fn func(cur *T) (*T, error)) (*T, error) {
	raw, err := s.Update(ctx, key, ttl, func(current []byte, found bool) ([]byte, error) {
		var cur *T
		if found {
			cur = new(T)
			if err := json.Unmarshal(current, cur); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}
