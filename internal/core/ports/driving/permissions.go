package driving

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// PermissionService computes and reconciles effective permissions on the
// mirrored resource tree.
type PermissionService interface {
	// ListPermissions returns the resources under parentID (all roots
	// when empty) whose permission matches the requested capability
	// filter. An empty filter returns everything.
	ListPermissions(ctx context.Context, connectorID, parentInternalID string, filter domain.Permission) ([]domain.ResourceNode, error)

	// SetPermissions applies a batch of permission changes keyed by
	// external resource ID. Gaining read triggers a bot-join (errors
	// abort the batch); losing read marks the connector for garbage
	// collection, once for the whole batch. Unknown IDs are skipped with
	// a warning. Re-applying the same batch is a no-op.
	SetPermissions(ctx context.Context, connectorID string, perms map[string]domain.Permission) error

	// ResourceParents maps each internal resource ID to its ancestor
	// chain (closest first), for UI breadcrumb reconciliation.
	ResourceParents(ctx context.Context, connectorID string, internalIDs []string) (map[string][]string, error)

	// ResourceTitles maps internal resource IDs to display titles.
	ResourceTitles(ctx context.Context, connectorID string, internalIDs []string) (map[string]string, error)
}
