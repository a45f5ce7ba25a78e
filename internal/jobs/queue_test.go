package jobs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
)

func exerciseQueue(t *testing.T, q Queue) {
	t.Helper()
	ctx := context.Background()

	_, err := q.Dequeue(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)

	first, err := runtime.NewJob("a", map[string]int{"n": 1})
	require.NoError(t, err)
	second, err := runtime.NewJob("b", map[string]int{"n": 2})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.JSONEq(t, `{"n":1}`, string(got.Payload))

	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Type)
}

func TestMemoryQueue(t *testing.T) {
	exerciseQueue(t, NewMemoryQueue(4))
}

func TestMemoryQueueDequeueHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryQueue(1).Dequeue(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis queue test")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	defer rdb.Close()
	key := "test:queue:" + uuid.NewString()
	defer rdb.Del(context.Background(), key)
	exerciseQueue(t, NewRedisQueue(rdb, key))
}
