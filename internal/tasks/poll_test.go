package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
)

func sequence(statuses ...feed.TaskStatus) (func(context.Context) (*feed.TaskRecord, error), *int) {
	calls := 0
	return func(context.Context) (*feed.TaskRecord, error) {
		s := statuses[len(statuses)-1]
		if calls < len(statuses) {
			s = statuses[calls]
		}
		calls++
		return &feed.TaskRecord{TaskID: "t1", Status: s}, nil
	}, &calls
}

func TestPollUntilTerminal(t *testing.T) {
	fetch, calls := sequence(feed.TaskPending, feed.TaskPending, feed.TaskCompleted)
	rec, err := Poll(context.Background(), fetch, PollPolicy{Interval: time.Millisecond, MaxAttempts: 10})
	require.NoError(t, err)
	assert.Equal(t, feed.TaskCompleted, rec.Status)
	assert.Equal(t, 3, *calls)
}

func TestPollTimeout(t *testing.T) {
	fetch, calls := sequence(feed.TaskPending)
	_, err := Poll(context.Background(), fetch, PollPolicy{Interval: time.Millisecond, MaxAttempts: 4})
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 4, *calls)
}

func TestPollUnknownIsAnError(t *testing.T) {
	fetch, calls := sequence(feed.TaskPending, feed.TaskUnknown)
	_, err := Poll(context.Background(), fetch, PollPolicy{Interval: time.Millisecond, MaxAttempts: 10})
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.Equal(t, 2, *calls)
}

func TestPollRetriesFetchErrors(t *testing.T) {
	calls := 0
	fetch := func(context.Context) (*feed.TaskRecord, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return &feed.TaskRecord{Status: feed.TaskFailed}, nil
	}
	rec, err := Poll(context.Background(), fetch, PollPolicy{Interval: time.Millisecond, MaxAttempts: 5})
	require.NoError(t, err)
	assert.Equal(t, feed.TaskFailed, rec.Status)
}

func TestPollHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetch, _ := sequence(feed.TaskPending)
	_, err := Poll(ctx, fetch, PollPolicy{Interval: time.Hour, MaxAttempts: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
