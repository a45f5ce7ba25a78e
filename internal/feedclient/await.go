package feedclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/tasks"
)

type AwaitRequest struct {
	TaskID   string
	Topic    string
	Language string
	Types    []feed.ContentType
	Policy   tasks.PollPolicy
}

// AwaitResult carries the generated items, or cached items when polling gave up.
type AwaitResult struct {
	Task      *feed.TaskRecord
	Items     []feed.ContentItem
	Missing   []feed.ContentType
	FromCache bool
}

// AwaitContent polls the task with a bounded budget. A completed task returns its
// result; a failed, unknown or timed-out task falls back to whatever content the
// API already has for the topic.
func (c *Client) AwaitContent(ctx context.Context, req AwaitRequest) (*AwaitResult, error) {
	if req.Policy.MaxAttempts <= 0 {
		req.Policy = tasks.DefaultPollPolicy()
	}
	if len(req.Types) == 0 {
		req.Types = feed.AllContentTypes
	}
	var rec *feed.TaskRecord
	var pollErr error
	if req.TaskID != "" {
		rec, pollErr = tasks.Poll(ctx, func(ctx context.Context) (*feed.TaskRecord, error) {
			return c.TaskStatus(ctx, req.TaskID)
		}, req.Policy)
		if pollErr == nil && rec.Status == feed.TaskCompleted && rec.Result != nil {
			return &AwaitResult{Task: rec, Items: rec.Result.Items, Missing: rec.Result.MissingTypes}, nil
		}
		if errors.Is(pollErr, context.Canceled) {
			return nil, pollErr
		}
		c.log.Info("task did not complete, reading cached content",
			"task_id", req.TaskID, "topic", req.Topic, "error", pollErr)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := &AwaitResult{Task: rec, FromCache: true, Items: []feed.ContentItem{}}
	var errs []error
	for _, t := range req.Types {
		res, err := c.Content(ctx, t, req.Topic, req.Language, 0)
		if err != nil {
			errs = append(errs, err)
			out.Missing = append(out.Missing, t)
			continue
		}
		if len(res.Items) == 0 {
			out.Missing = append(out.Missing, t)
			continue
		}
		out.Items = append(out.Items, res.Items...)
	}
	if len(errs) == len(req.Types) {
		return nil, fmt.Errorf("await content %q: %w", req.Topic, errors.Join(append(errs, pollErr)...))
	}
	return out, nil
}
