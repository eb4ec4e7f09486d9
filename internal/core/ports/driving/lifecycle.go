package driving

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// CreateConnectorRequest carries the parameters for connector creation.
type CreateConnectorRequest struct {
	Provider          domain.Provider
	WorkspaceID       string
	DataSourceID      string
	ConnectionID      string
	DefaultPermission domain.Permission
}

// UpdateConnectorRequest carries the mutable connector parameters. Zero
// values leave the current setting untouched.
type UpdateConnectorRequest struct {
	ConnectionID      string
	DefaultPermission domain.Permission
}

// ConnectorStatus is the external view of a connector returned by the API.
type ConnectorStatus struct {
	Connector     domain.Connector
	Configuration domain.SlackConfiguration
}

// LifecycleService manages connector instances: creation with transactional
// setup, credential rotation, administrative stop/resume and teardown.
type LifecycleService interface {
	// Create validates provider credentials, persists the connector and
	// its configuration atomically, then triggers the initial full sync
	// asynchronously. No rows are created when validation fails.
	Create(ctx context.Context, req CreateConnectorRequest) (*domain.Connector, error)

	// Update rotates the credential handle or changes the default
	// permission.
	Update(ctx context.Context, connectorID string, req UpdateConnectorRequest) error

	// Get returns the connector and its configuration.
	Get(ctx context.Context, connectorID string) (*ConnectorStatus, error)

	// Stop pauses the connector; paused connectors ignore triggers.
	Stop(ctx context.Context, connectorID string) error

	// Resume re-validates credentials and reactivates the connector.
	Resume(ctx context.Context, connectorID string) error

	// Delete tears the connector down: resources, configuration, sync
	// state and the connector row go in one transaction; the external
	// authorization is revoked afterwards, and only when this was the
	// last connector for its external account. A failed revoke is
	// surfaced as domain.ErrExternalRevoke with local state already
	// clean.
	Delete(ctx context.Context, connectorID string) error

	// SetBotEnabled toggles bot-mode message handling.
	SetBotEnabled(ctx context.Context, connectorID string, enabled bool) error

	// BotEnabled reports whether bot mode is active.
	BotEnabled(ctx context.Context, connectorID string) (bool, error)
}
