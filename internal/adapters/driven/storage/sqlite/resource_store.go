package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// resourceStore implements driven.ResourceStore.
type resourceStore struct {
	store *Store
}

var _ driven.ResourceStore = (*resourceStore)(nil)

// Upsert stores or updates a resource keyed by (connector_id, external_id).
func (s *resourceStore) Upsert(ctx context.Context, tx driven.Tx, resource domain.Resource) error {
	now := time.Now().UTC()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now

	var lastSeen any
	if !resource.LastSeenAt.IsZero() {
		lastSeen = resource.LastSeenAt
	}

	_, err := s.store.exec(tx).ExecContext(ctx, `
		INSERT INTO resources (connector_id, external_id, title, type, permission,
			parent_external_id, source_url, created_at, updated_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(connector_id, external_id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			permission = excluded.permission,
			parent_external_id = excluded.parent_external_id,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at,
			last_seen_at = excluded.last_seen_at
	`, resource.ConnectorID, resource.ExternalID, resource.Title, string(resource.Type),
		string(resource.Permission), nullString(resource.ParentExternalID), resource.SourceURL,
		resource.CreatedAt, resource.UpdatedAt, lastSeen)
	if err != nil {
		return fmt.Errorf("upserting resource: %w", err)
	}
	return nil
}

const resourceColumns = `connector_id, external_id, title, type, permission,
	parent_external_id, source_url, created_at, updated_at, last_seen_at`

func scanResource(row interface{ Scan(...any) error }) (*domain.Resource, error) {
	var r domain.Resource
	var resType, permission string
	var parent sql.NullString
	var lastSeen sql.NullTime
	err := row.Scan(&r.ConnectorID, &r.ExternalID, &r.Title, &resType, &permission,
		&parent, &r.SourceURL, &r.CreatedAt, &r.UpdatedAt, &lastSeen)
	if err != nil {
		return nil, err
	}
	r.Type = domain.ResourceType(resType)
	r.Permission = domain.Permission(permission)
	if parent.Valid {
		r.ParentExternalID = parent.String
	}
	if lastSeen.Valid {
		r.LastSeenAt = lastSeen.Time
	}
	return &r, nil
}

// Get retrieves one resource.
func (s *resourceStore) Get(ctx context.Context, connectorID, externalID string) (*domain.Resource, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE connector_id = ? AND external_id = ?`,
		connectorID, externalID)
	resource, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting resource: %w", err)
	}
	return resource, nil
}

// GetBatch retrieves several resources; missing IDs are absent from the
// result.
func (s *resourceStore) GetBatch(ctx context.Context, connectorID string, externalIDs []string) ([]domain.Resource, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(externalIDs)), ",")
	args := make([]any, 0, len(externalIDs)+1)
	args = append(args, connectorID)
	for _, id := range externalIDs {
		args = append(args, id)
	}

	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE connector_id = ? AND external_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("getting resource batch: %w", err)
	}
	defer rows.Close()

	return collectResources(rows)
}

// permissionSet expands a capability filter to the matching permissions.
func permissionSet(filter domain.Permission) []string {
	switch filter {
	case domain.PermissionRead:
		return []string{string(domain.PermissionRead), string(domain.PermissionReadWrite)}
	case domain.PermissionWrite:
		return []string{string(domain.PermissionWrite), string(domain.PermissionReadWrite)}
	case domain.PermissionReadWrite:
		return []string{string(domain.PermissionReadWrite)}
	case domain.PermissionNone:
		return []string{string(domain.PermissionNone)}
	}
	return nil
}

// ListByConnector returns resources matching the permission filter.
func (s *resourceStore) ListByConnector(ctx context.Context, connectorID string, filter domain.Permission) ([]domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE connector_id = ?`
	args := []any{connectorID}

	if perms := permissionSet(filter); perms != nil {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(perms)), ",")
		query += ` AND permission IN (` + placeholders + `)`
		for _, p := range perms {
			args = append(args, p)
		}
	}
	query += ` ORDER BY external_id`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	defer rows.Close()

	return collectResources(rows)
}

func collectResources(rows *sql.Rows) ([]domain.Resource, error) {
	var out []domain.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resource: %w", err)
		}
		out = append(out, *resource)
	}
	return out, rows.Err()
}

// SetPermission updates only the permission field.
func (s *resourceStore) SetPermission(ctx context.Context, tx driven.Tx, connectorID, externalID string, permission domain.Permission) error {
	res, err := s.store.exec(tx).ExecContext(ctx, `
		UPDATE resources SET permission = ?, updated_at = ?
		WHERE connector_id = ? AND external_id = ?
	`, string(permission), time.Now().UTC(), connectorID, externalID)
	if err != nil {
		return fmt.Errorf("setting permission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes resources by external ID. A recursive CTE pulls in the
// whole subtree so children never outlive their parent.
func (s *resourceStore) Delete(ctx context.Context, tx driven.Tx, connectorID string, externalIDs []string) error {
	if len(externalIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(externalIDs)), ",")
	args := make([]any, 0, 2*len(externalIDs)+2)
	args = append(args, connectorID)
	for _, id := range externalIDs {
		args = append(args, id)
	}
	args = append(args, connectorID)
	args = append(args, connectorID)

	_, err := s.store.exec(tx).ExecContext(ctx, `
		WITH RECURSIVE tree(id) AS (
			SELECT external_id FROM resources
			WHERE connector_id = ? AND external_id IN (`+placeholders+`)
			UNION
			SELECT r.external_id FROM resources r
			JOIN tree t ON r.parent_external_id = t.id
			WHERE r.connector_id = ?
		)
		DELETE FROM resources WHERE connector_id = ? AND external_id IN (SELECT id FROM tree)
	`, args...)
	if err != nil {
		return fmt.Errorf("deleting resources: %w", err)
	}
	return nil
}

// DeleteAll removes every resource row for a connector.
func (s *resourceStore) DeleteAll(ctx context.Context, tx driven.Tx, connectorID string) error {
	if _, err := s.store.exec(tx).ExecContext(ctx,
		`DELETE FROM resources WHERE connector_id = ?`, connectorID); err != nil {
		return fmt.Errorf("deleting all resources: %w", err)
	}
	return nil
}
