package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
)

var ErrPollTimeout = errors.New("tasks: polling attempts exhausted")

// PollPolicy bounds client-side polling: MaxAttempts fetches spaced by Interval.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 2 * time.Second, MaxAttempts: 30}
}

// Poll fetches until the task is terminal. An unknown status is reported as
// ErrUnknownTask rather than retried. Fetch errors are retried within the budget.
func Poll(ctx context.Context, fetch func(context.Context) (*feed.TaskRecord, error), p PollPolicy) (*feed.TaskRecord, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		rec, err := fetch(ctx)
		switch {
		case err != nil:
			lastErr = err
		case rec == nil || rec.Status == feed.TaskUnknown:
			return rec, ErrUnknownTask
		case rec.Status.Terminal():
			return rec, nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: last error: %v", ErrPollTimeout, lastErr)
	}
	return nil, ErrPollTimeout
}
