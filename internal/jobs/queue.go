package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
)

// ErrEmpty is returned by Dequeue when no job arrived within the wait window.
var ErrEmpty = errors.New("jobs: queue empty")

// Queue carries generation units from API processes to workers. Delivery is
// at-most-once; lock leases recover units lost with a crashed worker.
type Queue interface {
	Enqueue(ctx context.Context, job *runtime.Job) error
	Dequeue(ctx context.Context, wait time.Duration) (*runtime.Job, error)
	Len(ctx context.Context) (int64, error)
}
