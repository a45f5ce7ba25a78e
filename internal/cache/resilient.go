package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

// Resilient wraps a Store so that an outage degrades instead of failing requests:
// reads become misses, writes become no-ops, and Update / TryAcquireLock report
// ErrUnavailable so callers can bypass coordination. Errors returned by an UpdateFunc
// pass through unchanged.
type Resilient struct {
	inner   Store
	log     *logger.Logger
	metrics *observability.Metrics
	up      atomic.Bool
}

func NewResilient(inner Store, log *logger.Logger, metrics *observability.Metrics) *Resilient {
	r := &Resilient{inner: inner, log: log.With("component", "ResilientStore"), metrics: metrics}
	r.up.Store(true)
	metrics.StoreAvailable(true)
	return r
}

// Available reports whether the most recent store round trip succeeded.
func (r *Resilient) Available() bool { return r.up.Load() }

func (r *Resilient) mark(op string, err error) {
	if err == nil {
		if !r.up.Swap(true) {
			r.log.Info("cache store recovered", "op", op)
			r.metrics.StoreAvailable(true)
		}
		return
	}
	if r.up.Swap(false) {
		r.log.Warn("cache store unavailable", "op", op, "error", err)
		r.metrics.StoreAvailable(false)
	}
	r.metrics.CacheOp(op, "error")
}

func (r *Resilient) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.inner.Get(ctx, key)
	switch {
	case err == nil:
		r.mark("get", nil)
		r.metrics.CacheOp("get", "hit")
		return raw, nil
	case errors.Is(err, ErrMiss):
		r.mark("get", nil)
		r.metrics.CacheOp("get", "miss")
		return nil, ErrMiss
	default:
		r.mark("get", err)
		return nil, ErrMiss
	}
}

func (r *Resilient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.inner.Set(ctx, key, value, ttl)
	r.mark("set", err)
	if err == nil {
		r.metrics.CacheOp("set", "ok")
	}
	return nil
}

func (r *Resilient) Delete(ctx context.Context, keys ...string) error {
	err := r.inner.Delete(ctx, keys...)
	r.mark("delete", err)
	return nil
}

func (r *Resilient) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) ([]byte, error) {
	var fnErr error
	out, err := r.inner.Update(ctx, key, ttl, func(current []byte, found bool) ([]byte, error) {
		next, err := fn(current, found)
		if err != nil && !errors.Is(err, ErrSkipUpdate) {
			fnErr = err
		}
		return next, err
	})
	switch {
	case err == nil:
		r.mark("update", nil)
		r.metrics.CacheOp("update", "ok")
		return out, nil
	case errors.Is(err, ErrMiss):
		r.mark("update", nil)
		return nil, ErrMiss
	case fnErr != nil && errors.Is(err, fnErr):
		r.mark("update", nil)
		return nil, err
	default:
		r.mark("update", err)
		return nil, ErrUnavailable
	}
}

func (r *Resilient) TryAcquireLock(ctx context.Context, key, holder string, lease time.Duration) (bool, string, error) {
	ok, current, err := r.inner.TryAcquireLock(ctx, key, holder, lease)
	r.mark("lock", err)
	if err != nil {
		return false, "", ErrUnavailable
	}
	if ok {
		r.metrics.CacheOp("lock", "acquired")
	} else {
		r.metrics.CacheOp("lock", "held")
	}
	return ok, current, nil
}

func (r *Resilient) ReleaseLock(ctx context.Context, key, holder string) (bool, error) {
	ok, err := r.inner.ReleaseLock(ctx, key, holder)
	r.mark("unlock", err)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

func (r *Resilient) EvictExpired(ctx context.Context) (int, error) {
	n, err := r.inner.EvictExpired(ctx)
	r.mark("evict", err)
	if err != nil {
		return 0, ErrUnavailable
	}
	return n, nil
}

// Ping probes the inner store and refreshes Available.
func (r *Resilient) Ping(ctx context.Context) error {
	err := r.inner.Ping(ctx)
	r.mark("ping", err)
	if err != nil {
		return ErrUnavailable
	}
	return nil
}
