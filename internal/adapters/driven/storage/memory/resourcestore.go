package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// Ensure ResourceStore implements the interface.
var _ driven.ResourceStore = (*ResourceStore)(nil)

// ResourceStore is an in-memory implementation of driven.ResourceStore.
type ResourceStore struct {
	mu sync.RWMutex
	// keyed by connectorID then externalID
	resources map[string]map[string]domain.Resource
}

// NewResourceStore creates a new in-memory resource store.
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[string]map[string]domain.Resource),
	}
}

// Upsert stores or updates a resource keyed by (ConnectorID, ExternalID).
func (s *ResourceStore) Upsert(_ context.Context, _ driven.Tx, resource domain.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byConn, ok := s.resources[resource.ConnectorID]
	if !ok {
		byConn = make(map[string]domain.Resource)
		s.resources[resource.ConnectorID] = byConn
	}

	if existing, ok := byConn[resource.ExternalID]; ok {
		resource.CreatedAt = existing.CreatedAt
	} else if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}
	resource.UpdatedAt = time.Now().UTC()
	byConn[resource.ExternalID] = resource
	return nil
}

// Get retrieves one resource.
func (s *ResourceStore) Get(_ context.Context, connectorID, externalID string) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resource, ok := s.resources[connectorID][externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &resource, nil
}

// GetBatch retrieves several resources; missing IDs are absent from the
// result.
func (s *ResourceStore) GetBatch(_ context.Context, connectorID string, externalIDs []string) ([]domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Resource
	for _, id := range externalIDs {
		if resource, ok := s.resources[connectorID][id]; ok {
			out = append(out, resource)
		}
	}
	return out, nil
}

// ListByConnector returns resources matching the permission filter.
func (s *ResourceStore) ListByConnector(_ context.Context, connectorID string, filter domain.Permission) ([]domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Resource
	for _, resource := range s.resources[connectorID] {
		if filter != "" && !resource.Permission.Matches(filter) {
			continue
		}
		out = append(out, resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

// SetPermission updates only the permission field.
func (s *ResourceStore) SetPermission(_ context.Context, _ driven.Tx, connectorID, externalID string, permission domain.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource, ok := s.resources[connectorID][externalID]
	if !ok {
		return domain.ErrNotFound
	}
	resource.Permission = permission
	resource.UpdatedAt = time.Now().UTC()
	s.resources[connectorID][externalID] = resource
	return nil
}

// Delete removes resources by external ID, cascading to children.
func (s *ResourceStore) Delete(_ context.Context, _ driven.Tx, connectorID string, externalIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byConn := s.resources[connectorID]
	if byConn == nil {
		return nil
	}

	pending := append([]string(nil), externalIDs...)
	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		delete(byConn, id)
		// Children go in the same operation as their parent.
		for childID, child := range byConn {
			if child.ParentExternalID == id {
				pending = append(pending, childID)
			}
		}
	}
	return nil
}

// DeleteAll removes every resource row for a connector.
func (s *ResourceStore) DeleteAll(_ context.Context, _ driven.Tx, connectorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, connectorID)
	return nil
}
