package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
}

// Scheduler runs named jobs on fixed intervals. A cycle runs in at most one process:
// each run claims feed:lock:sched:{job} for most of the interval and leaves it to
// expire, so peers whose tickers fire moments later skip the same cycle.
type Scheduler struct {
	store   cache.Store
	owner   string
	jobs    []job
	log     *logger.Logger
	metrics *observability.Metrics
	wg      sync.WaitGroup
}

func New(log *logger.Logger, store cache.Store, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		store:   store,
		owner:   uuid.NewString(),
		log:     log.With("service", "Scheduler"),
		metrics: metrics,
	}
}

func (s *Scheduler) Add(name string, interval time.Duration, fn JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, run: fn})
}

func (s *Scheduler) Jobs() []string {
	out := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.name)
	}
	return out
}

// Start launches one loop per job. Each loop runs once immediately, then on every tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("Starting scheduler", "jobs", s.Jobs())
	for _, j := range s.jobs {
		if j.interval <= 0 {
			s.log.Warn("job disabled, non-positive interval", "job", j.name)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, j)
		}()
	}
}

func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, j job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		if _, err := s.runGuarded(ctx, j); err != nil {
			s.log.Warn("scheduled job failed", "job", j.name, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce runs the named job now under the same lock as the periodic loop. ran is
// false when another process holds the cycle.
func (s *Scheduler) RunOnce(ctx context.Context, name string) (bool, error) {
	for _, j := range s.jobs {
		if j.name == name {
			return s.runGuarded(ctx, j)
		}
	}
	return false, fmt.Errorf("unknown scheduler job %q", name)
}

func (s *Scheduler) runGuarded(ctx context.Context, j job) (ran bool, err error) {
	lease := j.interval * 9 / 10
	if lease <= 0 {
		lease = time.Minute
	}
	ok, holder, lerr := s.store.TryAcquireLock(ctx, cache.SchedulerLockKey(j.name), s.owner, lease)
	if lerr != nil && !errors.Is(lerr, cache.ErrUnavailable) {
		return false, lerr
	}
	if lerr == nil && !ok {
		s.log.Debug("cycle held elsewhere, skipping", "job", j.name, "holder", holder)
		s.metrics.SchedulerRun(j.name, "skipped")
		return false, nil
	}
	// with the store down each process runs its own cycle

	defer func() {
		if r := recover(); r != nil {
			ran = true
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
			s.metrics.SchedulerRun(j.name, "panic")
		}
	}()
	start := time.Now()
	if err := j.run(ctx); err != nil {
		s.metrics.SchedulerRun(j.name, "error")
		return true, err
	}
	s.metrics.SchedulerRun(j.name, "ok")
	s.log.Debug("scheduled job finished", "job", j.name, "duration_ms", time.Since(start).Milliseconds())
	return true, nil
}
