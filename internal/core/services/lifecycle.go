package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// Ensure LifecycleService implements the interface.
var _ driving.LifecycleService = (*LifecycleService)(nil)

// LifecycleService manages connector instances end to end.
type LifecycleService struct {
	connectors  driven.ConnectorStore
	resources   driven.ResourceStore
	syncStore   driven.SyncStateStore
	botMessages driven.BotMessageStore
	factory     driven.ProviderFactory
	broker      driven.CredentialBroker
	queue       driven.WorkflowQueue
	transactor  driven.Transactor
}

// NewLifecycleService creates a lifecycle service.
func NewLifecycleService(
	connectors driven.ConnectorStore,
	resources driven.ResourceStore,
	syncStore driven.SyncStateStore,
	botMessages driven.BotMessageStore,
	factory driven.ProviderFactory,
	broker driven.CredentialBroker,
	queue driven.WorkflowQueue,
	transactor driven.Transactor,
) *LifecycleService {
	return &LifecycleService{
		connectors:  connectors,
		resources:   resources,
		syncStore:   syncStore,
		botMessages: botMessages,
		factory:     factory,
		broker:      broker,
		queue:       queue,
		transactor:  transactor,
	}
}

// Create validates the credential first, then persists the connector and its
// configuration in one transaction. Validation failure leaves no rows behind.
func (s *LifecycleService) Create(ctx context.Context, req driving.CreateConnectorRequest) (*domain.Connector, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	connector := domain.Connector{
		ID:                uuid.NewString(),
		Provider:          req.Provider,
		WorkspaceID:       req.WorkspaceID,
		DataSourceID:      req.DataSourceID,
		ConnectionID:      req.ConnectionID,
		DefaultPermission: req.DefaultPermission,
		State:             domain.StateCreated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	client, err := s.factory.Client(ctx, &connector)
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}
	teamID, teamName, err := client.ValidateAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate credentials: %w", err)
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.connectors.Save(ctx, tx, connector); err != nil {
		return nil, fmt.Errorf("save connector: %w", err)
	}
	cfg := domain.SlackConfiguration{
		ConnectorID: connector.ID,
		TeamID:      teamID,
		TeamName:    teamName,
	}
	if err := s.connectors.SaveConfiguration(ctx, tx, cfg); err != nil {
		return nil, fmt.Errorf("save configuration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if err := s.queue.EnqueueSync(ctx, connector.ID, nil); err != nil {
		logger.Error("Failed to enqueue initial sync for connector %s: %v", connector.ID, err)
	}

	logger.Info("Created connector %s for team %s (%s)", connector.ID, teamID, teamName)
	return &connector, nil
}

func validateCreate(req driving.CreateConnectorRequest) error {
	if !req.Provider.Valid() {
		return fmt.Errorf("provider %q: %w", req.Provider, domain.ErrInvalidInput)
	}
	if req.WorkspaceID == "" || req.DataSourceID == "" || req.ConnectionID == "" {
		return fmt.Errorf("workspace, data source and connection are required: %w", domain.ErrInvalidInput)
	}
	if !req.DefaultPermission.Valid() {
		return fmt.Errorf("default permission %q: %w", req.DefaultPermission, domain.ErrInvalidInput)
	}
	return nil
}

// Update rotates the credential handle or changes the default permission.
func (s *LifecycleService) Update(ctx context.Context, connectorID string, req driving.UpdateConnectorRequest) error {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}

	if req.ConnectionID != "" {
		connector.ConnectionID = req.ConnectionID
		// A rotated credential must work before it replaces the old one.
		client, err := s.factory.Client(ctx, connector)
		if err != nil {
			return fmt.Errorf("create provider client: %w", err)
		}
		if _, _, err := client.ValidateAuth(ctx); err != nil {
			return fmt.Errorf("validate rotated credentials: %w", err)
		}
	}
	if req.DefaultPermission != "" {
		if !req.DefaultPermission.Valid() {
			return fmt.Errorf("default permission %q: %w", req.DefaultPermission, domain.ErrInvalidInput)
		}
		connector.DefaultPermission = req.DefaultPermission
	}

	connector.UpdatedAt = time.Now()
	if err := s.connectors.Save(ctx, nil, *connector); err != nil {
		return fmt.Errorf("save connector: %w", err)
	}
	return nil
}

// Get returns the connector and its configuration.
func (s *LifecycleService) Get(ctx context.Context, connectorID string) (*driving.ConnectorStatus, error) {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("get connector: %w", err)
	}
	cfg, err := s.connectors.GetConfiguration(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	return &driving.ConnectorStatus{Connector: *connector, Configuration: *cfg}, nil
}

// Stop pauses the connector.
func (s *LifecycleService) Stop(ctx context.Context, connectorID string) error {
	return s.transition(ctx, connectorID, domain.StatePaused, "")
}

// Resume re-validates credentials and reactivates the connector. A connector
// that never completed a full sync restarts one; others go straight back to
// incremental mode.
func (s *LifecycleService) Resume(ctx context.Context, connectorID string) error {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}

	client, err := s.factory.Client(ctx, connector)
	if err != nil {
		return fmt.Errorf("create provider client: %w", err)
	}
	if _, _, err := client.ValidateAuth(ctx); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}

	target := domain.StateIncrementalSync
	if connector.LastSyncAt.IsZero() {
		target = domain.StateFullSync
	}
	if err := s.transition(ctx, connectorID, target, ""); err != nil {
		return err
	}
	return s.queue.EnqueueSync(ctx, connectorID, nil)
}

// transition moves the connector to a new state, replacing its error marker.
func (s *LifecycleService) transition(ctx context.Context, connectorID string, to domain.ConnectorState, errorType string) error {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}
	if !connector.State.CanTransition(to) {
		return fmt.Errorf("transition %s -> %s: %w", connector.State, to, domain.ErrInvalidInput)
	}
	connector.State = to
	connector.ErrorType = errorType
	connector.UpdatedAt = time.Now()
	if err := s.connectors.Save(ctx, nil, *connector); err != nil {
		return fmt.Errorf("save connector: %w", err)
	}
	return nil
}

// Delete tears the connector down. Local rows go in one transaction; the
// external authorization is revoked afterwards, only when no other connector
// still mirrors the same team.
func (s *LifecycleService) Delete(ctx context.Context, connectorID string) error {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}

	var teamID string
	cfg, err := s.connectors.GetConfiguration(ctx, connectorID)
	switch {
	case err == nil:
		teamID = cfg.TeamID
	case errors.Is(err, domain.ErrNotFound):
		// Half-created connector; nothing team-scoped to revoke.
	default:
		return fmt.Errorf("get configuration: %w", err)
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.resources.DeleteAll(ctx, tx, connectorID); err != nil {
		return fmt.Errorf("delete resources: %w", err)
	}
	if err := s.syncStore.Delete(ctx, tx, connectorID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete sync state: %w", err)
	}
	if err := s.botMessages.DeleteAll(ctx, tx, connectorID); err != nil {
		return fmt.Errorf("delete bot messages: %w", err)
	}
	if err := s.connectors.DeleteConfiguration(ctx, tx, connectorID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete configuration: %w", err)
	}
	if err := s.connectors.Delete(ctx, tx, connectorID); err != nil {
		return fmt.Errorf("delete connector: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	logger.Info("Deleted connector %s", connectorID)

	if teamID == "" {
		return nil
	}
	siblings, err := s.connectors.ListByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("list team connectors: %w", err)
	}
	if len(siblings) > 0 {
		// Another connector still needs the authorization.
		return nil
	}

	if err := s.broker.Revoke(ctx, connector.ConnectionID); err != nil {
		// Local state is already clean; the caller can retry the revoke
		// alone.
		return fmt.Errorf("revoke connection %s: %v: %w", connector.ConnectionID, err, domain.ErrExternalRevoke)
	}
	logger.Info("Revoked external authorization for team %s", teamID)
	return nil
}

// SetBotEnabled toggles bot-mode message handling.
func (s *LifecycleService) SetBotEnabled(ctx context.Context, connectorID string, enabled bool) error {
	cfg, err := s.connectors.GetConfiguration(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get configuration: %w", err)
	}
	if cfg.BotEnabled == enabled {
		return nil
	}
	cfg.BotEnabled = enabled
	if err := s.connectors.SaveConfiguration(ctx, nil, *cfg); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	return nil
}

// BotEnabled reports whether bot mode is active.
func (s *LifecycleService) BotEnabled(ctx context.Context, connectorID string) (bool, error) {
	cfg, err := s.connectors.GetConfiguration(ctx, connectorID)
	if err != nil {
		return false, fmt.Errorf("get configuration: %w", err)
	}
	return cfg.BotEnabled, nil
}
