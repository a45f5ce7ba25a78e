package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

func TestRunOnceSingleProcessPerCycle(t *testing.T) {
	store := cache.NewMemoryStore()
	a := New(logger.NewNop(), store, nil)
	b := New(logger.NewNop(), store, nil)
	var runs atomic.Int32
	fn := func(context.Context) error { runs.Add(1); return nil }
	a.Add("job", time.Minute, fn)
	b.Add("job", time.Minute, fn)

	ran, err := a.RunOnce(context.Background(), "job")
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = b.RunOnce(context.Background(), "job")
	require.NoError(t, err)
	assert.False(t, ran, "peer skips a held cycle")
	assert.EqualValues(t, 1, runs.Load())
}

func TestRunOnceIsolatesPanics(t *testing.T) {
	s := New(logger.NewNop(), cache.NewMemoryStore(), nil)
	s.Add("boom", time.Minute, func(context.Context) error { panic("kaput") })
	s.Add("ok", time.Minute, func(context.Context) error { return nil })

	ran, err := s.RunOnce(context.Background(), "boom")
	assert.True(t, ran)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaput")

	ran, err = s.RunOnce(context.Background(), "ok")
	assert.True(t, ran)
	assert.NoError(t, err)
}

func TestRunOnceUnknownJob(t *testing.T) {
	s := New(logger.NewNop(), cache.NewMemoryStore(), nil)
	_, err := s.RunOnce(context.Background(), "missing")
	assert.Error(t, err)
}

type lockDown struct{ cache.Store }

func (lockDown) TryAcquireLock(context.Context, string, string, time.Duration) (bool, string, error) {
	return false, "", cache.ErrUnavailable
}

func TestRunOnceRunsWhenStoreDown(t *testing.T) {
	s := New(logger.NewNop(), lockDown{cache.NewMemoryStore()}, nil)
	s.Add("job", time.Minute, func(context.Context) error { return errors.New("partial") })
	ran, err := s.RunOnce(context.Background(), "job")
	assert.True(t, ran)
	assert.EqualError(t, err, "partial")
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	s := New(logger.NewNop(), cache.NewMemoryStore(), nil)
	done := make(chan struct{}, 1)
	s.Add("tick", time.Hour, func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	cancel()
	s.Wait()
}
