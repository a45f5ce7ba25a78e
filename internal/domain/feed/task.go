package feed

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	// TaskUnknown is never stored; it is reported for evicted or never-issued ids.
	TaskUnknown TaskStatus = "unknown"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

type TaskResult struct {
	Items          []ContentItem `json:"items"`
	MissingTypes   []ContentType `json:"missing_types,omitempty"`
	QuotaExhausted bool          `json:"quota_exhausted"`
}

type TaskRecord struct {
	TaskID       string        `json:"task_id"`
	Topic        string        `json:"topic"`
	Language     string        `json:"language"`
	ContentTypes []ContentType `json:"content_types"`
	Status       TaskStatus    `json:"status"`
	Result       *TaskResult   `json:"result,omitempty"`
	Error        string        `json:"error,omitempty"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}
