// Package queue provides an in-process implementation of the workflow queue
// port. Jobs for one connector run serially on a dedicated worker; duplicate
// pending sync triggers are coalesced instead of queued twice, so a sync
// never runs in parallel with itself. A deployment fronted by a durable
// workflow engine swaps its client in behind the same port.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// JobKind discriminates queued work.
type JobKind string

// Job kinds.
const (
	JobSync     JobKind = "sync"
	JobGC       JobKind = "gc"
	JobTeardown JobKind = "teardown"
	JobBotReply JobKind = "bot_reply"
)

// Job is one unit of queued connector work.
type Job struct {
	Kind        JobKind
	ConnectorID string

	// Scope restricts a sync job to specific external resource IDs.
	// Empty means full pass.
	Scope []string

	// BotMessageID identifies the message for bot_reply jobs.
	BotMessageID string

	attempts int
}

// Executor runs jobs. Implemented by the core services; set after
// construction to break the wiring cycle between queue and services.
type Executor interface {
	ExecuteSync(ctx context.Context, connectorID string, scope []string) error
	ExecuteGC(ctx context.Context, connectorID string) error
	ExecuteTeardown(ctx context.Context, connectorID string) error
	ExecuteBotReply(ctx context.Context, connectorID, botMessageID string) error
}

const (
	// maxAttempts bounds retries for transient failures.
	maxAttempts = 3

	// retryBase is the initial retry backoff, doubled per attempt.
	retryBase = time.Second
)

// Ensure Queue implements the interface.
var _ driven.WorkflowQueue = (*Queue)(nil)

// Queue dispatches connector work to per-connector workers.
type Queue struct {
	mu       sync.Mutex
	workers  map[string]*worker
	executor Executor
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a workflow queue.
func New() *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		workers: make(map[string]*worker),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetExecutor wires the job executor. Must be called before any enqueue.
func (q *Queue) SetExecutor(executor Executor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.executor = executor
}

// Stop cancels in-flight work and waits for workers to drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}

// EnqueueSync schedules a sync run, coalescing with any pending sync job
// for the same connector.
func (q *Queue) EnqueueSync(_ context.Context, connectorID string, scope []string) error {
	return q.enqueue(Job{Kind: JobSync, ConnectorID: connectorID, Scope: scope})
}

// EnqueueGC schedules a garbage-collection run.
func (q *Queue) EnqueueGC(_ context.Context, connectorID string) error {
	return q.enqueue(Job{Kind: JobGC, ConnectorID: connectorID})
}

// EnqueueTeardown schedules connector teardown.
func (q *Queue) EnqueueTeardown(_ context.Context, connectorID string) error {
	return q.enqueue(Job{Kind: JobTeardown, ConnectorID: connectorID})
}

// EnqueueBotReply schedules answering one recorded bot message.
func (q *Queue) EnqueueBotReply(_ context.Context, connectorID, botMessageID string) error {
	return q.enqueue(Job{Kind: JobBotReply, ConnectorID: connectorID, BotMessageID: botMessageID})
}

func (q *Queue) enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return errors.New("queue stopped")
	}
	if q.executor == nil {
		return errors.New("queue has no executor")
	}

	w, ok := q.workers[job.ConnectorID]
	if !ok {
		w = &worker{queue: q, connectorID: job.ConnectorID}
		q.workers[job.ConnectorID] = w
	}
	w.add(job)
	return nil
}

// worker serializes jobs for one connector.
type worker struct {
	queue       *Queue
	connectorID string

	mu      sync.Mutex
	pending []Job
	running bool
}

// add appends a job, coalescing sync triggers, and starts the drain loop if
// idle. Caller holds the queue lock.
func (w *worker) add(job Job) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if job.Kind == JobSync {
		for i := range w.pending {
			if w.pending[i].Kind == JobSync {
				w.pending[i].Scope = mergeScopes(w.pending[i].Scope, job.Scope)
				return
			}
		}
	}
	w.pending = append(w.pending, job)

	if !w.running {
		w.running = true
		w.queue.wg.Add(1)
		go w.drain()
	}
}

// mergeScopes unions two sync scopes. An empty scope means a full pass and
// absorbs any narrower trigger.
func mergeScopes(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, id := range append(append([]string(nil), a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (w *worker) next() (Job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		w.running = false
		return Job{}, false
	}
	job := w.pending[0]
	w.pending = w.pending[1:]
	return job, true
}

func (w *worker) drain() {
	defer w.queue.wg.Done()

	for {
		job, ok := w.next()
		if !ok {
			return
		}
		if err := w.queue.ctx.Err(); err != nil {
			return
		}
		w.run(job)
	}
}

func (w *worker) run(job Job) {
	err := w.execute(job)
	if err == nil {
		return
	}

	if isPermanent(err) {
		logger.Warn("queue: dropping %s job for connector %s: %v", job.Kind, job.ConnectorID, err)
		return
	}

	job.attempts++
	if job.attempts >= maxAttempts {
		logger.Error("queue: %s job for connector %s failed after %d attempts: %v",
			job.Kind, job.ConnectorID, job.attempts, err)
		return
	}

	backoff := retryBase << (job.attempts - 1)
	logger.Debug("queue: retrying %s job for connector %s in %s", job.Kind, job.ConnectorID, backoff)
	select {
	case <-w.queue.ctx.Done():
		return
	case <-time.After(backoff):
	}

	w.mu.Lock()
	w.pending = append([]Job{job}, w.pending...)
	w.mu.Unlock()
}

func (w *worker) execute(job Job) error {
	ctx := w.queue.ctx
	switch job.Kind {
	case JobSync:
		return w.queue.executor.ExecuteSync(ctx, job.ConnectorID, job.Scope)
	case JobGC:
		return w.queue.executor.ExecuteGC(ctx, job.ConnectorID)
	case JobTeardown:
		return w.queue.executor.ExecuteTeardown(ctx, job.ConnectorID)
	case JobBotReply:
		return w.queue.executor.ExecuteBotReply(ctx, job.ConnectorID, job.BotMessageID)
	}
	return nil
}

// isPermanent reports whether the error should not be retried: the
// orchestrator has already recorded the condition (errored state, paused,
// deleted) or the entity is gone.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrAuthExpired) ||
		errors.Is(err, domain.ErrConnectorPaused) ||
		errors.Is(err, domain.ErrConnectorErrored) ||
		errors.Is(err, domain.ErrConnectorDeleted) ||
		errors.Is(err, domain.ErrNotFound)
}
