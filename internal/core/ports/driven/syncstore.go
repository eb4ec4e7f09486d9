package driven

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// SyncStateStore persists sync progress per connector.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a connector.
	Get(ctx context.Context, connectorID string) (*domain.SyncState, error)

	// Delete removes sync state for a connector.
	Delete(ctx context.Context, tx Tx, connectorID string) error
}
