package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	var lastSync, crawlStarted any
	if !state.LastSync.IsZero() {
		lastSync = state.LastSync
	}
	if !state.CrawlStartedAt.IsZero() {
		crawlStarted = state.CrawlStartedAt
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (connector_id, cursor, last_sync, gc_required, crawl_started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(connector_id) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync,
			gc_required = excluded.gc_required,
			crawl_started_at = excluded.crawl_started_at
	`, state.ConnectorID, state.Cursor, lastSync, state.GCRequired, crawlStarted)
	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a connector.
func (s *syncStateStore) Get(ctx context.Context, connectorID string) (*domain.SyncState, error) {
	var state domain.SyncState
	var lastSync, crawlStarted sql.NullTime
	err := s.store.db.QueryRowContext(ctx, `
		SELECT connector_id, cursor, last_sync, gc_required, crawl_started_at
		FROM sync_states WHERE connector_id = ?
	`, connectorID).Scan(&state.ConnectorID, &state.Cursor, &lastSync, &state.GCRequired, &crawlStarted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting sync state: %w", err)
	}
	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}
	if crawlStarted.Valid {
		state.CrawlStartedAt = crawlStarted.Time
	}
	return &state, nil
}

// Delete removes sync state for a connector.
func (s *syncStateStore) Delete(ctx context.Context, tx driven.Tx, connectorID string) error {
	if _, err := s.store.exec(tx).ExecContext(ctx,
		`DELETE FROM sync_states WHERE connector_id = ?`, connectorID); err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

// botMessageStore implements driven.BotMessageStore.
type botMessageStore struct {
	store *Store
}

var _ driven.BotMessageStore = (*botMessageStore)(nil)

// Save stores or updates a bot message record.
func (s *botMessageStore) Save(ctx context.Context, msg domain.BotMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO bot_messages (id, connector_id, channel_id, message_ts, thread_ts,
			text, conversation_id, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			completed = excluded.completed
	`, msg.ID, msg.ConnectorID, msg.ChannelID, msg.MessageTS, msg.ThreadTS,
		msg.Text, msg.ConversationID, msg.Completed, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving bot message: %w", err)
	}
	return nil
}

const botMessageColumns = `id, connector_id, channel_id, message_ts, thread_ts,
	text, conversation_id, completed, created_at`

func scanBotMessage(row interface{ Scan(...any) error }) (*domain.BotMessage, error) {
	var m domain.BotMessage
	err := row.Scan(&m.ID, &m.ConnectorID, &m.ChannelID, &m.MessageTS, &m.ThreadTS,
		&m.Text, &m.ConversationID, &m.Completed, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get retrieves a record by ID.
func (s *botMessageStore) Get(ctx context.Context, id string) (*domain.BotMessage, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+botMessageColumns+` FROM bot_messages WHERE id = ?`, id)
	msg, err := scanBotMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting bot message: %w", err)
	}
	return msg, nil
}

// GetByMessage retrieves a record by its provider identity.
func (s *botMessageStore) GetByMessage(ctx context.Context, connectorID, channelID, messageTS string) (*domain.BotMessage, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+botMessageColumns+` FROM bot_messages
		WHERE connector_id = ? AND channel_id = ? AND message_ts = ?
	`, connectorID, channelID, messageTS)
	msg, err := scanBotMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting bot message: %w", err)
	}
	return msg, nil
}

// DeleteAll removes all bot message records for a connector.
func (s *botMessageStore) DeleteAll(ctx context.Context, tx driven.Tx, connectorID string) error {
	if _, err := s.store.exec(tx).ExecContext(ctx,
		`DELETE FROM bot_messages WHERE connector_id = ?`, connectorID); err != nil {
		return fmt.Errorf("deleting bot messages: %w", err)
	}
	return nil
}
