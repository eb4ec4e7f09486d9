package slack

import (
	"context"
	"fmt"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ProviderFactory = (*Factory)(nil)

// Factory builds Slack clients with credentials resolved at call time. Each
// sync run gets its own client; there is no shared global state beyond the
// broker's token cache.
type Factory struct {
	broker driven.CredentialBroker
}

// NewFactory creates a Slack client factory.
func NewFactory(broker driven.CredentialBroker) *Factory {
	return &Factory{broker: broker}
}

// Client resolves the connector's token and returns a ready client.
func (f *Factory) Client(ctx context.Context, connector *domain.Connector) (driven.ProviderClient, error) {
	if connector.Provider != domain.ProviderSlack {
		return nil, fmt.Errorf("provider %q: %w", connector.Provider, domain.ErrInvalidInput)
	}

	token, err := f.broker.AccessToken(ctx, connector.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for connector %s: %w", connector.ID, err)
	}

	return NewClient(Config{Token: token})
}
