package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 8

// releaseScript deletes the lock only when the caller still holds it, so a worker
// whose lease already expired cannot release a lock re-acquired by someone else.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisStore struct {
	rdb goredis.UniversalClient
}

func NewRedisStore(rdb goredis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) ([]byte, error) {
	if ttl < 0 {
		ttl = 0
	}
	var out []byte
	txf := func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		found := true
		if errors.Is(err, goredis.Nil) {
			found = false
			current = nil
		} else if err != nil {
			return err
		}
		next, err := fn(current, found)
		if errors.Is(err, ErrSkipUpdate) {
			if !found {
				return ErrMiss
			}
			out = current
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, next, ttl)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("redis update %s: too much contention", key)
}

func (s *RedisStore) TryAcquireLock(ctx context.Context, key, holder string, lease time.Duration) (bool, string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, key, holder, lease).Result()
		if err != nil {
			return false, "", fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			return true, holder, nil
		}
		current, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			// lease expired between SETNX and GET
			continue
		}
		if err != nil {
			return false, "", fmt.Errorf("redis get %s: %w", key, err)
		}
		return false, current, nil
	}
	return false, "", nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key, holder string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.rdb, []string{key}, holder).Int()
	if err != nil {
		return false, fmt.Errorf("redis release %s: %w", key, err)
	}
	return n == 1, nil
}

// EvictExpired is a no-op: Redis expires keys itself.
func (s *RedisStore) EvictExpired(ctx context.Context) (int, error) { return 0, nil }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
