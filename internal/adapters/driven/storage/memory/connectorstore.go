package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// Ensure ConnectorStore implements the interface.
var _ driven.ConnectorStore = (*ConnectorStore)(nil)

// ConnectorStore is an in-memory implementation of driven.ConnectorStore.
type ConnectorStore struct {
	mu         sync.RWMutex
	connectors map[string]domain.Connector
	configs    map[string]domain.SlackConfiguration
}

// NewConnectorStore creates a new in-memory connector store.
func NewConnectorStore() *ConnectorStore {
	return &ConnectorStore{
		connectors: make(map[string]domain.Connector),
		configs:    make(map[string]domain.SlackConfiguration),
	}
}

// Save stores or updates a connector.
func (s *ConnectorStore) Save(_ context.Context, _ driven.Tx, connector domain.Connector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if connector.CreatedAt.IsZero() {
		connector.CreatedAt = time.Now().UTC()
	}
	connector.UpdatedAt = time.Now().UTC()
	s.connectors[connector.ID] = connector
	return nil
}

// Get retrieves a connector by ID.
func (s *ConnectorStore) Get(_ context.Context, id string) (*domain.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	connector, ok := s.connectors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &connector, nil
}

// List returns all connectors, optionally filtered by state.
func (s *ConnectorStore) List(_ context.Context, state domain.ConnectorState) ([]domain.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Connector
	for _, c := range s.connectors {
		if state != "" && c.State != state {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Delete removes a connector row.
func (s *ConnectorStore) Delete(_ context.Context, _ driven.Tx, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connectors, id)
	return nil
}

// SaveConfiguration stores or updates the provider configuration.
func (s *ConnectorStore) SaveConfiguration(_ context.Context, _ driven.Tx, cfg domain.SlackConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ConnectorID] = cfg
	return nil
}

// GetConfiguration retrieves the configuration for a connector.
func (s *ConnectorStore) GetConfiguration(_ context.Context, connectorID string) (*domain.SlackConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[connectorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cfg, nil
}

// ListByTeam returns connector IDs configured for the given external team.
func (s *ConnectorStore) ListByTeam(_ context.Context, teamID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, cfg := range s.configs {
		if cfg.TeamID == teamID {
			out = append(out, id)
		}
	}
	return out, nil
}

// DeleteConfiguration removes the configuration row.
func (s *ConnectorStore) DeleteConfiguration(_ context.Context, _ driven.Tx, connectorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, connectorID)
	return nil
}
