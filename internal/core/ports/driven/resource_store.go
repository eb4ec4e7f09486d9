package driven

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// ResourceStore persists the mirror of external resources. It exclusively
// owns resource rows; the permission engine mutates only the permission
// field, through this interface.
type ResourceStore interface {
	// Upsert stores or updates a resource, keyed by
	// (ConnectorID, ExternalID). Idempotent: replaying the same call
	// leaves a single row reflecting the most recent values.
	Upsert(ctx context.Context, tx Tx, resource domain.Resource) error

	// Get retrieves one resource.
	Get(ctx context.Context, connectorID, externalID string) (*domain.Resource, error)

	// GetBatch retrieves several resources at once. Missing IDs are
	// simply absent from the result, not an error.
	GetBatch(ctx context.Context, connectorID string, externalIDs []string) ([]domain.Resource, error)

	// ListByConnector returns resources for a connector. A non-empty
	// filter restricts the result to permissions matching the requested
	// capability (domain.Permission.Matches).
	ListByConnector(ctx context.Context, connectorID string, filter domain.Permission) ([]domain.Resource, error)

	// SetPermission updates only the permission field of one resource.
	SetPermission(ctx context.Context, tx Tx, connectorID, externalID string, permission domain.Permission) error

	// Delete removes resources by external ID. Children of a deleted
	// parent are removed in the same transaction so hierarchical
	// providers never leave orphans.
	Delete(ctx context.Context, tx Tx, connectorID string, externalIDs []string) error

	// DeleteAll removes every resource row for a connector.
	DeleteAll(ctx context.Context, tx Tx, connectorID string) error
}
