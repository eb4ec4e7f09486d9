package driven

import (
	"context"
	"time"
)

// ScheduledTask is one recurring background task (periodic sync, garbage
// collection sweep).
type ScheduledTask struct {
	ID          string
	Name        string
	Interval    time.Duration
	Enabled     bool
	LastRun     time.Time
	LastSuccess time.Time
	LastError   string
	NextRun     time.Time
}

// SchedulerStore persists scheduler task state across restarts.
type SchedulerStore interface {
	// SaveTask stores or updates a task.
	SaveTask(ctx context.Context, task *ScheduledTask) error

	// GetTask retrieves a task by ID. Returns (nil, nil) if absent.
	GetTask(ctx context.Context, id string) (*ScheduledTask, error)

	// ListTasks returns all tasks.
	ListTasks(ctx context.Context) ([]ScheduledTask, error)
}
