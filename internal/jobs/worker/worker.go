package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/jobs"
	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

const (
	dequeueWait  = 2 * time.Second
	errorBackoff = time.Second
)

type Worker struct {
	log         *logger.Logger
	queue       jobs.Queue
	registry    *runtime.Registry
	metrics     *observability.Metrics
	concurrency int
	wg          sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, queue jobs.Queue, registry *runtime.Registry, metrics *observability.Metrics, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		log:         baseLog.With("component", "JobWorker"),
		queue:       queue,
		registry:    registry,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Start launches the consumer loops. They exit when ctx is cancelled; Wait blocks
// until every in-flight job has returned.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		}
		job, err := w.queue.Dequeue(ctx, dequeueWait)
		if errors.Is(err, jobs.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Warn("Dequeue failed", "worker_id", workerID, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}
		w.process(ctx, workerID, job)
	}
}

func (w *Worker) process(ctx context.Context, workerID int, job *runtime.Job) {
	h, ok := w.registry.Get(job.Type)
	if !ok {
		w.log.Warn("No handler registered for job_type", "worker_id", workerID, "job_type", job.Type, "job_id", job.ID)
		w.metrics.JobRun(job.Type, "unhandled")
		return
	}
	jc := runtime.NewContext(ctx, job, w.log)
	start := time.Now()
	err := w.safeRun(h, jc)
	switch {
	case err == nil:
		w.metrics.JobRun(job.Type, "succeeded")
		jc.Log.Debug("Job finished", "worker_id", workerID, "duration_ms", time.Since(start).Milliseconds())
	default:
		w.metrics.JobRun(job.Type, "failed")
		jc.Log.Warn("Job failed", "worker_id", workerID, "error", err, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (w *Worker) safeRun(h runtime.Handler, jc *runtime.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			jc.Log.Error("Job handler panic", "panic", r)
			err = &panicError{Val: r}
		}
	}()
	return h.Run(jc)
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
