package driving

import "context"

// SyncStatus describes one connector's sync activity.
type SyncStatus struct {
	ConnectorID        string
	Running            bool
	ResourcesProcessed int
	ErrorCount         int
}

// SyncOrchestrator drives full and incremental synchronisation and garbage
// collection. RunSync and RunGC are invoked by the workflow queue; Trigger is
// the API-facing entry that enqueues work.
type SyncOrchestrator interface {
	// Trigger enqueues a sync run for the connector. Scope restricts the
	// run to specific external resource IDs; empty means full pass.
	Trigger(ctx context.Context, connectorID string, scope []string) error

	// RunSync executes one sync run. Single-flight per connector: a
	// second concurrent call returns domain.ErrSyncInProgress.
	RunSync(ctx context.Context, connectorID string, scope []string) error

	// RunGC purges index and mirror entries for resources whose read
	// access was revoked. Mirror rows are removed only after the index
	// deletion is confirmed.
	RunGC(ctx context.Context, connectorID string) error

	// Status reports sync activity for a connector.
	Status(ctx context.Context, connectorID string) (*SyncStatus, error)
}
