package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// Ensure WebhookRouter implements the interface.
var _ driving.WebhookRouter = (*WebhookRouter)(nil)

// WebhookRouter fans validated provider events out to the connectors
// mirroring the originating team. It only enqueues work; the HTTP handler
// acknowledges immediately.
type WebhookRouter struct {
	connectors driven.ConnectorStore
	queue      driven.WorkflowQueue
	bot        driving.BotService
}

// NewWebhookRouter creates a webhook router.
func NewWebhookRouter(connectors driven.ConnectorStore, queue driven.WorkflowQueue, bot driving.BotService) *WebhookRouter {
	return &WebhookRouter{connectors: connectors, queue: queue, bot: bot}
}

// Route maps one event to connector work. Events for teams without a
// connector are dropped; connectors in a non-syncable state ignore sync
// triggers but still honour uninstalls.
func (r *WebhookRouter) Route(ctx context.Context, event domain.Event) error {
	connectorIDs, err := r.connectors.ListByTeam(ctx, event.TeamID)
	if err != nil {
		return fmt.Errorf("list team connectors: %w", err)
	}
	if len(connectorIDs) == 0 {
		logger.Debug("No connector for team %s, dropping %s event", event.TeamID, event.Kind)
		return nil
	}

	var errs []error
	for _, connectorID := range connectorIDs {
		if err := r.routeOne(ctx, connectorID, event); err != nil {
			errs = append(errs, fmt.Errorf("connector %s: %w", connectorID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *WebhookRouter) routeOne(ctx context.Context, connectorID string, event domain.Event) error {
	connector, err := r.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}

	if event.Kind == domain.EventUninstalled {
		return r.handleUninstall(ctx, connector)
	}

	if !connector.State.Syncable() {
		logger.Debug("Connector %s is %s, ignoring %s event", connectorID, connector.State, event.Kind)
		return nil
	}

	switch event.Kind {
	case domain.EventResourceChanged, domain.EventMembershipChanged:
		return r.queue.EnqueueSync(ctx, connectorID, []string{event.ResourceID})

	case domain.EventMessage:
		cfg, err := r.connectors.GetConfiguration(ctx, connectorID)
		if err != nil {
			return fmt.Errorf("get configuration: %w", err)
		}
		if !cfg.BotEnabled {
			return nil
		}
		return r.bot.HandleMessage(ctx, connectorID, event)
	}

	return fmt.Errorf("event kind %q: %w", event.Kind, domain.ErrInvalidInput)
}

// handleUninstall marks the connector errored and starts teardown. The app
// is gone workspace-side; syncing again is pointless until re-install.
func (r *WebhookRouter) handleUninstall(ctx context.Context, connector *domain.Connector) error {
	if connector.State != domain.StateErrored && connector.State != domain.StateDeleted {
		connector.State = domain.StateErrored
		connector.ErrorType = domain.ErrorTypeUninstalled
		connector.UpdatedAt = time.Now()
		if err := r.connectors.Save(ctx, nil, *connector); err != nil {
			return fmt.Errorf("save connector: %w", err)
		}
		logger.Warn("Connector %s entered errored state: app uninstalled", connector.ID)
	}
	return r.queue.EnqueueTeardown(ctx, connector.ID)
}
