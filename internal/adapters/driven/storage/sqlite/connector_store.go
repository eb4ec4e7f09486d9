package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// connectorStore implements driven.ConnectorStore.
type connectorStore struct {
	store *Store
}

var _ driven.ConnectorStore = (*connectorStore)(nil)

// Save stores or updates a connector.
func (s *connectorStore) Save(ctx context.Context, tx driven.Tx, connector domain.Connector) error {
	now := time.Now().UTC()
	if connector.CreatedAt.IsZero() {
		connector.CreatedAt = now
	}
	connector.UpdatedAt = now

	var lastSync any
	if !connector.LastSyncAt.IsZero() {
		lastSync = connector.LastSyncAt
	}

	_, err := s.store.exec(tx).ExecContext(ctx, `
		INSERT INTO connectors (id, provider, workspace_id, data_source_id, connection_id,
			default_permission, state, error_type, created_at, updated_at, last_sync_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			connection_id = excluded.connection_id,
			default_permission = excluded.default_permission,
			state = excluded.state,
			error_type = excluded.error_type,
			updated_at = excluded.updated_at,
			last_sync_at = excluded.last_sync_at
	`, connector.ID, string(connector.Provider), connector.WorkspaceID, connector.DataSourceID,
		connector.ConnectionID, string(connector.DefaultPermission), string(connector.State),
		connector.ErrorType, connector.CreatedAt, connector.UpdatedAt, lastSync)
	if err != nil {
		return fmt.Errorf("saving connector: %w", err)
	}
	return nil
}

func scanConnector(row interface{ Scan(...any) error }) (*domain.Connector, error) {
	var c domain.Connector
	var provider, defaultPerm, state string
	var lastSync sql.NullTime
	err := row.Scan(&c.ID, &provider, &c.WorkspaceID, &c.DataSourceID, &c.ConnectionID,
		&defaultPerm, &state, &c.ErrorType, &c.CreatedAt, &c.UpdatedAt, &lastSync)
	if err != nil {
		return nil, err
	}
	c.Provider = domain.Provider(provider)
	c.DefaultPermission = domain.Permission(defaultPerm)
	c.State = domain.ConnectorState(state)
	if lastSync.Valid {
		c.LastSyncAt = lastSync.Time
	}
	return &c, nil
}

const connectorColumns = `id, provider, workspace_id, data_source_id, connection_id,
	default_permission, state, error_type, created_at, updated_at, last_sync_at`

// Get retrieves a connector by ID.
func (s *connectorStore) Get(ctx context.Context, id string) (*domain.Connector, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+connectorColumns+` FROM connectors WHERE id = ?`, id)
	connector, err := scanConnector(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting connector: %w", err)
	}
	return connector, nil
}

// List returns all connectors, optionally filtered by state.
func (s *connectorStore) List(ctx context.Context, state domain.ConnectorState) ([]domain.Connector, error) {
	query := `SELECT ` + connectorColumns + ` FROM connectors`
	var args []any
	if state != "" {
		query += ` WHERE state = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY created_at`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}
	defer rows.Close()

	var out []domain.Connector
	for rows.Next() {
		connector, err := scanConnector(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connector: %w", err)
		}
		out = append(out, *connector)
	}
	return out, rows.Err()
}

// Delete removes a connector row.
func (s *connectorStore) Delete(ctx context.Context, tx driven.Tx, id string) error {
	if _, err := s.store.exec(tx).ExecContext(ctx, `DELETE FROM connectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting connector: %w", err)
	}
	return nil
}

// SaveConfiguration stores or updates the provider configuration.
func (s *connectorStore) SaveConfiguration(ctx context.Context, tx driven.Tx, cfg domain.SlackConfiguration) error {
	domains, err := json.Marshal(cfg.WhitelistedDomains)
	if err != nil {
		return fmt.Errorf("marshalling whitelisted domains: %w", err)
	}

	_, err = s.store.exec(tx).ExecContext(ctx, `
		INSERT INTO slack_configurations (connector_id, team_id, team_name, bot_enabled, whitelisted_domains)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(connector_id) DO UPDATE SET
			team_id = excluded.team_id,
			team_name = excluded.team_name,
			bot_enabled = excluded.bot_enabled,
			whitelisted_domains = excluded.whitelisted_domains
	`, cfg.ConnectorID, cfg.TeamID, cfg.TeamName, cfg.BotEnabled, string(domains))
	if err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	return nil
}

// GetConfiguration retrieves the configuration for a connector.
func (s *connectorStore) GetConfiguration(ctx context.Context, connectorID string) (*domain.SlackConfiguration, error) {
	var cfg domain.SlackConfiguration
	var domains string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT connector_id, team_id, team_name, bot_enabled, whitelisted_domains
		FROM slack_configurations WHERE connector_id = ?
	`, connectorID).Scan(&cfg.ConnectorID, &cfg.TeamID, &cfg.TeamName, &cfg.BotEnabled, &domains)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting configuration: %w", err)
	}
	if err := json.Unmarshal([]byte(domains), &cfg.WhitelistedDomains); err != nil {
		return nil, fmt.Errorf("unmarshalling whitelisted domains: %w", err)
	}
	return &cfg, nil
}

// ListByTeam returns connector IDs configured for the given external team.
func (s *connectorStore) ListByTeam(ctx context.Context, teamID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT connector_id FROM slack_configurations WHERE team_id = ?`, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing by team: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning connector id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DeleteConfiguration removes the configuration row.
func (s *connectorStore) DeleteConfiguration(ctx context.Context, tx driven.Tx, connectorID string) error {
	if _, err := s.store.exec(tx).ExecContext(ctx,
		`DELETE FROM slack_configurations WHERE connector_id = ?`, connectorID); err != nil {
		return fmt.Errorf("deleting configuration: %w", err)
	}
	return nil
}
