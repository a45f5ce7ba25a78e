package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisStoreForTest(t *testing.T) (*RedisStore, string) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis store tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	return NewRedisStore(rdb), "test:" + uuid.NewString() + ":"
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, ns := redisStoreForTest(t)
	ctx := context.Background()
	key := ns + "k"
	t.Cleanup(func() { _ = s.Delete(context.Background(), key) })

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, key, []byte("v"), time.Minute))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	out, err := s.Update(ctx, key, time.Minute, func(cur []byte, found bool) ([]byte, error) {
		require.True(t, found)
		return append(cur, '!'), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v!", string(out))
}

func TestRedisStoreLock(t *testing.T) {
	s, ns := redisStoreForTest(t)
	ctx := context.Background()
	key := ns + "lock"
	t.Cleanup(func() { _ = s.Delete(context.Background(), key) })

	ok, holder, err := s.TryAcquireLock(ctx, key, "t1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", holder)

	ok, holder, err = s.TryAcquireLock(ctx, key, "t2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "t1", holder)

	released, err := s.ReleaseLock(ctx, key, "t2")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = s.ReleaseLock(ctx, key, "t1")
	require.NoError(t, err)
	assert.True(t, released)
}
