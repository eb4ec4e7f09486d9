package driven

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// BotMessageStore persists inbound chat-bot trigger records.
type BotMessageStore interface {
	// Save stores or updates a bot message record.
	Save(ctx context.Context, msg domain.BotMessage) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.BotMessage, error)

	// GetByMessage retrieves a record by its provider identity. Used to
	// deduplicate webhook redeliveries of the same message.
	GetByMessage(ctx context.Context, connectorID, channelID, messageTS string) (*domain.BotMessage, error)

	// DeleteAll removes all bot message records for a connector.
	DeleteAll(ctx context.Context, tx Tx, connectorID string) error
}
