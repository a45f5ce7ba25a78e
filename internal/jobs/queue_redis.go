package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
)

const DefaultQueueKey = "feed:queue:jobs"

// RedisQueue is a FIFO list: producers RPUSH, consumers BLPOP.
type RedisQueue struct {
	rdb goredis.UniversalClient
	key string
}

func NewRedisQueue(rdb goredis.UniversalClient, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *runtime.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", q.key, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*runtime.Job, error) {
	res, err := q.rdb.BLPop(ctx, wait, q.key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("redis blpop %s: %w", q.key, err)
	}
	// BLPOP replies with [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("redis blpop %s: unexpected reply length %d", q.key, len(res))
	}
	var job runtime.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
