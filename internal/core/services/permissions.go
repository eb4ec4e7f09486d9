package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// Ensure PermissionService implements the interface.
var _ driving.PermissionService = (*PermissionService)(nil)

// PermissionService reconciles effective permissions on the mirrored
// resource tree.
type PermissionService struct {
	connectors driven.ConnectorStore
	resources  driven.ResourceStore
	syncStore  driven.SyncStateStore
	factory    driven.ProviderFactory
	queue      driven.WorkflowQueue
}

// NewPermissionService creates a permission service.
func NewPermissionService(
	connectors driven.ConnectorStore,
	resources driven.ResourceStore,
	syncStore driven.SyncStateStore,
	factory driven.ProviderFactory,
	queue driven.WorkflowQueue,
) *PermissionService {
	return &PermissionService{
		connectors: connectors,
		resources:  resources,
		syncStore:  syncStore,
		factory:    factory,
		queue:      queue,
	}
}

// ListPermissions returns the resources under parentInternalID matching the
// capability filter, ordered by title for stable UI rendering.
func (s *PermissionService) ListPermissions(
	ctx context.Context,
	connectorID, parentInternalID string,
	filter domain.Permission,
) ([]domain.ResourceNode, error) {
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("permission filter %q: %w", filter, domain.ErrInvalidInput)
	}

	var parentExternalID string
	if parentInternalID != "" {
		var err error
		parentExternalID, err = domain.ExternalIDFromInternal(parentInternalID)
		if err != nil {
			return nil, err
		}
	}

	resources, err := s.resources.ListByConnector(ctx, connectorID, filter)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	nodes := make([]domain.ResourceNode, 0, len(resources))
	for _, res := range resources {
		if res.ParentExternalID != parentExternalID {
			continue
		}
		nodes = append(nodes, res.Node())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Title < nodes[j].Title })
	return nodes, nil
}

// SetPermissions applies a batch of permission changes keyed by external
// resource ID. Idempotent: re-applying the same batch joins nothing twice
// and marks GC at most once.
func (s *PermissionService) SetPermissions(
	ctx context.Context,
	connectorID string,
	perms map[string]domain.Permission,
) error {
	for externalID, perm := range perms {
		if !perm.Valid() {
			return fmt.Errorf("permission %q for %s: %w", perm, externalID, domain.ErrInvalidInput)
		}
	}

	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}

	// Stable order so a partial failure aborts at a deterministic point.
	externalIDs := make([]string, 0, len(perms))
	for externalID := range perms {
		externalIDs = append(externalIDs, externalID)
	}
	sort.Strings(externalIDs)

	var client driven.ProviderClient
	gcNeeded := false
	var syncScope []string

	for _, externalID := range externalIDs {
		perm := perms[externalID]
		current, err := s.resources.Get(ctx, connectorID, externalID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Skipping unknown resource %s for connector %s", externalID, connectorID)
			continue
		}
		if err != nil {
			return fmt.Errorf("get resource %s: %w", externalID, err)
		}
		if current.Permission == perm {
			continue
		}

		// Gaining read means the bot must be inside the resource before
		// content can flow. A join failure aborts the whole batch.
		if !current.Permission.CanRead() && perm.CanRead() {
			if client == nil {
				client, err = s.factory.Client(ctx, connector)
				if err != nil {
					return fmt.Errorf("create provider client: %w", err)
				}
			}
			if err := client.JoinResource(ctx, externalID); err != nil {
				return fmt.Errorf("join resource %s: %w", externalID, err)
			}
			syncScope = append(syncScope, externalID)
		}

		if current.Permission.CanRead() && !perm.CanRead() {
			gcNeeded = true
		}

		if err := s.resources.SetPermission(ctx, nil, connectorID, externalID, perm); err != nil {
			return fmt.Errorf("set permission on %s: %w", externalID, err)
		}
	}

	if gcNeeded {
		if err := s.markGCRequired(ctx, connectorID); err != nil {
			return err
		}
		if err := s.queue.EnqueueGC(ctx, connectorID); err != nil {
			return fmt.Errorf("enqueue gc: %w", err)
		}
	}

	// Newly readable resources get their content synced right away.
	if len(syncScope) > 0 && connector.State.Syncable() {
		if err := s.queue.EnqueueSync(ctx, connectorID, syncScope); err != nil {
			return fmt.Errorf("enqueue sync: %w", err)
		}
	}

	return nil
}

// markGCRequired flags the sync state once per batch.
func (s *PermissionService) markGCRequired(ctx context.Context, connectorID string) error {
	state, err := s.syncStore.Get(ctx, connectorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get sync state: %w", err)
	}
	if state == nil {
		state = &domain.SyncState{ConnectorID: connectorID}
	}
	if state.GCRequired {
		return nil
	}
	state.GCRequired = true
	if err := s.syncStore.Save(ctx, *state); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

// ResourceParents maps each internal resource ID to its ancestor chain,
// closest first.
func (s *PermissionService) ResourceParents(
	ctx context.Context,
	connectorID string,
	internalIDs []string,
) (map[string][]string, error) {
	all, err := s.resources.ListByConnector(ctx, connectorID, "")
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	byExternal := make(map[string]domain.Resource, len(all))
	for _, res := range all {
		byExternal[res.ExternalID] = res
	}

	parents := make(map[string][]string, len(internalIDs))
	for _, internalID := range internalIDs {
		externalID, err := domain.ExternalIDFromInternal(internalID)
		if err != nil {
			return nil, err
		}

		var chain []string
		current, ok := byExternal[externalID]
		for ok && current.ParentExternalID != "" {
			parent, found := byExternal[current.ParentExternalID]
			if !found {
				break
			}
			chain = append(chain, parent.InternalID())
			current = parent
			// Bound against cyclic parent links.
			if len(chain) > len(all) {
				break
			}
		}
		parents[internalID] = chain
	}
	return parents, nil
}

// ResourceTitles maps internal resource IDs to display titles. Unknown IDs
// are absent from the result.
func (s *PermissionService) ResourceTitles(
	ctx context.Context,
	connectorID string,
	internalIDs []string,
) (map[string]string, error) {
	externalIDs := make([]string, 0, len(internalIDs))
	for _, internalID := range internalIDs {
		externalID, err := domain.ExternalIDFromInternal(internalID)
		if err != nil {
			return nil, err
		}
		externalIDs = append(externalIDs, externalID)
	}

	resources, err := s.resources.GetBatch(ctx, connectorID, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("get resources: %w", err)
	}

	titles := make(map[string]string, len(resources))
	for _, res := range resources {
		titles[res.InternalID()] = res.Title
	}
	return titles, nil
}
