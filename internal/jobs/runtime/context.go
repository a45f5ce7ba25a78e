package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

// Job is the queued unit of work. Payload is handler-specific JSON.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func NewJob(jobType string, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	return &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Context is the execution handle a handler receives for one job.
type Context struct {
	Ctx context.Context
	Job *Job
	Log *logger.Logger
}

func NewContext(ctx context.Context, job *Job, baseLog *logger.Logger) *Context {
	return &Context{
		Ctx: ctx,
		Job: job,
		Log: baseLog.With("job_id", job.ID, "job_type", job.Type),
	}
}

// Decode unmarshals the job payload into out.
func (c *Context) Decode(out any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return fmt.Errorf("job has no payload")
	}
	if err := json.Unmarshal(c.Job.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", c.Job.Type, err)
	}
	return nil
}
