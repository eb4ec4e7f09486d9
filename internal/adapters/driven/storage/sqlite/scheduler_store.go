package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// SaveTask stores or updates a task.
func (s *schedulerStore) SaveTask(ctx context.Context, task *driven.ScheduledTask) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduler_tasks (id, name, interval_seconds, enabled, last_run,
			last_success, last_error, next_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error,
			next_run = excluded.next_run
	`, task.ID, task.Name, int64(task.Interval.Seconds()), task.Enabled,
		nullTime(task.LastRun), nullTime(task.LastSuccess), task.LastError, nullTime(task.NextRun))
	if err != nil {
		return fmt.Errorf("saving task: %w", err)
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func scanTask(row interface{ Scan(...any) error }) (*driven.ScheduledTask, error) {
	var task driven.ScheduledTask
	var intervalSeconds int64
	var lastRun, lastSuccess, nextRun sql.NullTime
	err := row.Scan(&task.ID, &task.Name, &intervalSeconds, &task.Enabled,
		&lastRun, &lastSuccess, &task.LastError, &nextRun)
	if err != nil {
		return nil, err
	}
	task.Interval = time.Duration(intervalSeconds) * time.Second
	if lastRun.Valid {
		task.LastRun = lastRun.Time
	}
	if lastSuccess.Valid {
		task.LastSuccess = lastSuccess.Time
	}
	if nextRun.Valid {
		task.NextRun = nextRun.Time
	}
	return &task, nil
}

// GetTask retrieves a task by ID. Returns (nil, nil) if absent.
func (s *schedulerStore) GetTask(ctx context.Context, id string) (*driven.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, interval_seconds, enabled, last_run, last_success, last_error, next_run
		FROM scheduler_tasks WHERE id = ?
	`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]driven.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, interval_seconds, enabled, last_run, last_success, last_error, next_run
		FROM scheduler_tasks ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []driven.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}
