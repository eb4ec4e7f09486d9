package driven

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// ConnectorStore persists connector rows and their provider configuration.
type ConnectorStore interface {
	// Save stores or updates a connector.
	Save(ctx context.Context, tx Tx, connector domain.Connector) error

	// Get retrieves a connector by ID.
	Get(ctx context.Context, id string) (*domain.Connector, error)

	// List returns all connectors, optionally filtered by state.
	List(ctx context.Context, state domain.ConnectorState) ([]domain.Connector, error)

	// Delete removes a connector row.
	Delete(ctx context.Context, tx Tx, id string) error

	// SaveConfiguration stores or updates the provider configuration.
	SaveConfiguration(ctx context.Context, tx Tx, cfg domain.SlackConfiguration) error

	// GetConfiguration retrieves the configuration for a connector.
	GetConfiguration(ctx context.Context, connectorID string) (*domain.SlackConfiguration, error)

	// ListByTeam returns all connector IDs whose configuration points at
	// the given external team. Used to decide whether teardown may revoke
	// the provider-side authorization.
	ListByTeam(ctx context.Context, teamID string) ([]string, error)

	// DeleteConfiguration removes the configuration row.
	DeleteConfiguration(ctx context.Context, tx Tx, connectorID string) error
}
