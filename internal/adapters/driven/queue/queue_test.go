package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

type recordingExecutor struct {
	mu    sync.Mutex
	syncs [][]string
	gcs   int
	errs  []error

	// started, when set, receives a signal as each sync begins; release,
	// when set, blocks sync execution until closed.
	started chan struct{}
	release chan struct{}
}

func (e *recordingExecutor) ExecuteSync(_ context.Context, _ string, scope []string) error {
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.release != nil {
		<-e.release
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncs = append(e.syncs, scope)
	return e.nextErr()
}

func (e *recordingExecutor) ExecuteGC(context.Context, string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gcs++
	return e.nextErr()
}

func (e *recordingExecutor) ExecuteTeardown(context.Context, string) error { return nil }

func (e *recordingExecutor) ExecuteBotReply(context.Context, string, string) error { return nil }

// nextErr pops the next scripted error. Caller holds the lock.
func (e *recordingExecutor) nextErr() error {
	if len(e.errs) == 0 {
		return nil
	}
	err := e.errs[0]
	e.errs = e.errs[1:]
	return err
}

func (e *recordingExecutor) syncCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.syncs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEnqueueSyncRunsJob(t *testing.T) {
	exec := &recordingExecutor{}
	q := New()
	q.SetExecutor(exec)
	defer q.Stop()

	require.NoError(t, q.EnqueueSync(context.Background(), "c1", []string{"C1"}))
	waitFor(t, func() bool { return exec.syncCount() == 1 })
	assert.Equal(t, []string{"C1"}, exec.syncs[0])
}

func TestPendingSyncsCoalesce(t *testing.T) {
	exec := &recordingExecutor{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := New()
	q.SetExecutor(exec)
	defer q.Stop()

	ctx := context.Background()

	// First sync starts and blocks; the next two land in the pending queue
	// and must collapse into a single run with the union of both scopes.
	require.NoError(t, q.EnqueueSync(ctx, "c1", []string{"C1"}))
	<-exec.started
	require.NoError(t, q.EnqueueSync(ctx, "c1", []string{"C2"}))
	require.NoError(t, q.EnqueueSync(ctx, "c1", []string{"C3", "C2"}))
	close(exec.release)

	waitFor(t, func() bool { return exec.syncCount() == 2 })

	// No third run appears.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, exec.syncCount())
	assert.ElementsMatch(t, []string{"C2", "C3"}, exec.syncs[1])
}

func TestFullSyncAbsorbsScopedTriggers(t *testing.T) {
	exec := &recordingExecutor{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := New()
	q.SetExecutor(exec)
	defer q.Stop()

	ctx := context.Background()
	require.NoError(t, q.EnqueueSync(ctx, "c1", []string{"C1"}))
	<-exec.started
	require.NoError(t, q.EnqueueSync(ctx, "c1", nil))
	require.NoError(t, q.EnqueueSync(ctx, "c1", []string{"C2"}))
	close(exec.release)

	waitFor(t, func() bool { return exec.syncCount() == 2 })
	assert.Empty(t, exec.syncs[1])
}

func TestConnectorsRunIndependently(t *testing.T) {
	exec := &recordingExecutor{}
	q := New()
	q.SetExecutor(exec)
	defer q.Stop()

	ctx := context.Background()
	require.NoError(t, q.EnqueueSync(ctx, "c1", nil))
	require.NoError(t, q.EnqueueSync(ctx, "c2", nil))
	require.NoError(t, q.EnqueueGC(ctx, "c1"))

	waitFor(t, func() bool {
		exec.mu.Lock()
		defer exec.mu.Unlock()
		return len(exec.syncs) == 2 && exec.gcs == 1
	})
}

func TestPermanentErrorsAreNotRetried(t *testing.T) {
	exec := &recordingExecutor{errs: []error{domain.ErrAuthExpired}}
	q := New()
	q.SetExecutor(exec)
	defer q.Stop()

	require.NoError(t, q.EnqueueSync(context.Background(), "c1", nil))
	waitFor(t, func() bool { return exec.syncCount() == 1 })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, exec.syncCount())
}

func TestTransientErrorIsRetried(t *testing.T) {
	exec := &recordingExecutor{errs: []error{errors.New("rate limited upstream")}}
	q := New()
	q.SetExecutor(exec)
	defer q.Stop()

	require.NoError(t, q.EnqueueSync(context.Background(), "c1", nil))
	waitFor(t, func() bool { return exec.syncCount() == 2 })
}

func TestEnqueueAfterStop(t *testing.T) {
	q := New()
	q.SetExecutor(&recordingExecutor{})
	q.Stop()

	assert.Error(t, q.EnqueueSync(context.Background(), "c1", nil))
}
