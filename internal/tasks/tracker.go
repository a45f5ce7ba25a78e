package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

// LeaseExpiredReason is recorded on tasks whose worker never reported back.
const LeaseExpiredReason = "generation lease expired"

var (
	ErrNotPending  = errors.New("tasks: task is no longer pending")
	ErrUnknownTask = errors.New("tasks: unknown task")
)

// Tracker keeps TaskRecords in the shared store. Records are retained for a fixed
// window after their last write; afterwards the id reports unknown.
type Tracker struct {
	store      cache.Store
	retention  time.Duration
	staleAfter time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// NewTracker builds a tracker. staleAfter bounds how long a task may stay pending
// (normally lease plus a grace period) before Status fails it.
func NewTracker(log *logger.Logger, store cache.Store, retention, staleAfter time.Duration) *Tracker {
	return &Tracker{
		store:      store,
		retention:  retention,
		staleAfter: staleAfter,
		log:        log.With("service", "TaskTracker"),
		now:        time.Now,
	}
}

func (t *Tracker) Create(ctx context.Context, id, topic, language string, types []feed.ContentType) (*feed.TaskRecord, error) {
	rec := &feed.TaskRecord{
		TaskID:       id,
		Topic:        topic,
		Language:     language,
		ContentTypes: types,
		Status:       feed.TaskPending,
		SubmittedAt:  t.now().UTC(),
	}
	if err := cache.SetJSON(ctx, t.store, cache.TaskKey(id), rec, t.retention); err != nil {
		return nil, fmt.Errorf("create task %s: %w", id, err)
	}
	return rec, nil
}

// Discard removes a pending record that never became the lock holder.
func (t *Tracker) Discard(ctx context.Context, id string) error {
	return t.store.Delete(ctx, cache.TaskKey(id))
}

func (t *Tracker) Complete(ctx context.Context, id string, result feed.TaskResult) (*feed.TaskRecord, error) {
	return t.transition(ctx, id, func(rec *feed.TaskRecord) {
		rec.Status = feed.TaskCompleted
		rec.Result = &result
	})
}

func (t *Tracker) Fail(ctx context.Context, id, reason string) (*feed.TaskRecord, error) {
	return t.transition(ctx, id, func(rec *feed.TaskRecord) {
		rec.Status = feed.TaskFailed
		rec.Error = reason
	})
}

// transition applies mutate atomically, only out of pending. Terminal records are
// never rewritten.
func (t *Tracker) transition(ctx context.Context, id string, mutate func(*feed.TaskRecord)) (*feed.TaskRecord, error) {
	rec, err := cache.UpdateJSON(ctx, t.store, cache.TaskKey(id), t.retention, func(cur *feed.TaskRecord) (*feed.TaskRecord, error) {
		if cur == nil {
			return nil, cache.ErrSkipUpdate
		}
		if cur.Status != feed.TaskPending {
			return nil, ErrNotPending
		}
		done := t.now().UTC()
		cur.CompletedAt = &done
		mutate(cur)
		return cur, nil
	})
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Status never returns nil on success: evicted or never-issued ids report unknown.
func (t *Tracker) Status(ctx context.Context, id string) (*feed.TaskRecord, error) {
	var rec feed.TaskRecord
	err := cache.GetJSON(ctx, t.store, cache.TaskKey(id), &rec)
	if errors.Is(err, cache.ErrMiss) {
		return &feed.TaskRecord{TaskID: id, Status: feed.TaskUnknown}, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Status == feed.TaskPending && t.staleAfter > 0 && t.now().Sub(rec.SubmittedAt) > t.staleAfter {
		failed, err := t.Fail(ctx, id, LeaseExpiredReason)
		switch {
		case err == nil:
			t.log.Warn("pending task exceeded its lease", "task_id", id, "topic", rec.Topic)
			return failed, nil
		case errors.Is(err, ErrNotPending):
			// a worker finished in the meantime
			return t.Status(ctx, id)
		default:
			return &rec, nil
		}
	}
	return &rec, nil
}
