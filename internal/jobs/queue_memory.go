package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
)

type MemoryQueue struct {
	ch chan *runtime.Job
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan *runtime.Job, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job *runtime.Job) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", job.Type, ctx.Err())
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*runtime.Job, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case job := <-q.ch:
		return job, nil
	case <-timer.C:
		return nil, ErrEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}
