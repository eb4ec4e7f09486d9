package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// Scheduler task IDs.
const (
	TaskIDPeriodicSync = "periodic_sync"
	TaskIDGCSweep      = "gc_sweep"
)

// Default task intervals.
const (
	DefaultSyncInterval = 10 * time.Minute
	DefaultGCInterval   = time.Hour
)

// SchedulerConfig holds scheduler task intervals.
type SchedulerConfig struct {
	SyncInterval time.Duration
	GCInterval   time.Duration
}

// withDefaults fills unset intervals.
func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.SyncInterval <= 0 {
		c.SyncInterval = DefaultSyncInterval
	}
	if c.GCInterval <= 0 {
		c.GCInterval = DefaultGCInterval
	}
	return c
}

// Scheduler manages recurring background work: the periodic incremental sync
// pass and the garbage-collection sweep. Task state persists across restarts
// so intervals are honoured through a redeploy.
type Scheduler struct {
	config     SchedulerConfig
	store      driven.SchedulerStore
	connectors driven.ConnectorStore
	syncStore  driven.SyncStateStore
	queue      driven.WorkflowQueue

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler.
func NewScheduler(
	config SchedulerConfig,
	store driven.SchedulerStore,
	connectors driven.ConnectorStore,
	syncStore driven.SyncStateStore,
	queue driven.WorkflowQueue,
) *Scheduler {
	return &Scheduler{
		config:     config.withDefaults(),
		store:      store,
		connectors: connectors,
		syncStore:  syncStore,
		queue:      queue,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or the context ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("Scheduler failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures the configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if err := s.ensureTask(ctx, TaskIDPeriodicSync, "Periodic Sync", s.config.SyncInterval); err != nil {
		return err
	}
	return s.ensureTask(ctx, TaskIDGCSweep, "GC Sweep", s.config.GCInterval)
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, interval time.Duration) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &driven.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: interval,
			Enabled:  true,
			NextRun:  time.Now().Add(interval),
		}
	} else if task.Interval != interval {
		task.Interval = interval
		task.NextRun = time.Now().Add(interval)
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("Scheduler failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, &task)
		}
	}
}

// runTask executes a single task and records the outcome.
func (s *Scheduler) runTask(ctx context.Context, task *driven.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		startedAt := time.Now()
		var err error
		switch task.ID {
		case TaskIDPeriodicSync:
			err = s.runPeriodicSync(ctx)
		case TaskIDGCSweep:
			err = s.runGCSweep(ctx)
		default:
			logger.Warn("Scheduler: unknown task ID %s", task.ID)
			return
		}

		endedAt := time.Now()
		if err != nil {
			task.LastError = err.Error()
			logger.Error("Scheduled task %s failed: %v", task.ID, err)
		} else {
			task.LastError = ""
			task.LastSuccess = endedAt
		}
		task.LastRun = startedAt
		task.NextRun = endedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Error("Scheduler failed to save task %s: %v", task.ID, saveErr)
		}
	}()
}

// runPeriodicSync enqueues an incremental pass for every active connector.
func (s *Scheduler) runPeriodicSync(ctx context.Context) error {
	connectors, err := s.connectors.List(ctx, domain.StateIncrementalSync)
	if err != nil {
		return err
	}

	var errs []error
	for _, connector := range connectors {
		if err := s.queue.EnqueueSync(ctx, connector.ID, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runGCSweep enqueues garbage collection for connectors flagged GCRequired.
func (s *Scheduler) runGCSweep(ctx context.Context) error {
	connectors, err := s.connectors.List(ctx, "")
	if err != nil {
		return err
	}

	var errs []error
	for _, connector := range connectors {
		state, err := s.syncStore.Get(ctx, connector.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !state.GCRequired {
			continue
		}
		if err := s.queue.EnqueueGC(ctx, connector.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
