package driven

import "context"

// WorkflowQueue schedules durable connector work. Work for one connector is
// serialized: a sync enqueued while one is in flight is coalesced with any
// pending trigger, never run in parallel with itself. Execution is
// asynchronous relative to the caller; webhook handlers enqueue and return.
type WorkflowQueue interface {
	// EnqueueSync schedules a sync run. A non-empty scope restricts the
	// run to the listed external resource IDs (incremental); an empty
	// scope requests a full pass.
	EnqueueSync(ctx context.Context, connectorID string, scope []string) error

	// EnqueueGC schedules a garbage-collection run.
	EnqueueGC(ctx context.Context, connectorID string) error

	// EnqueueTeardown schedules connector teardown after an uninstall
	// event.
	EnqueueTeardown(ctx context.Context, connectorID string) error

	// EnqueueBotReply schedules answering one recorded bot message.
	EnqueueBotReply(ctx context.Context, connectorID, botMessageID string) error
}
