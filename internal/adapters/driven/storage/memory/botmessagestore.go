package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// Ensure BotMessageStore implements the interface.
var _ driven.BotMessageStore = (*BotMessageStore)(nil)

// BotMessageStore is an in-memory implementation of driven.BotMessageStore.
type BotMessageStore struct {
	mu       sync.RWMutex
	messages map[string]domain.BotMessage // keyed by record ID
}

// NewBotMessageStore creates a new in-memory bot message store.
func NewBotMessageStore() *BotMessageStore {
	return &BotMessageStore{
		messages: make(map[string]domain.BotMessage),
	}
}

// Save stores or updates a bot message record.
func (s *BotMessageStore) Save(_ context.Context, msg domain.BotMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages[msg.ID] = msg
	return nil
}

// GetByMessage retrieves a record by its provider identity.
func (s *BotMessageStore) GetByMessage(_ context.Context, connectorID, channelID, messageTS string) (*domain.BotMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msg := range s.messages {
		if msg.ConnectorID == connectorID && msg.ChannelID == channelID && msg.MessageTS == messageTS {
			out := msg
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Get retrieves a record by ID.
func (s *BotMessageStore) Get(_ context.Context, id string) (*domain.BotMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &msg, nil
}

// DeleteAll removes all bot message records for a connector.
func (s *BotMessageStore) DeleteAll(_ context.Context, _ driven.Tx, connectorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, msg := range s.messages {
		if msg.ConnectorID == connectorID {
			delete(s.messages, id)
		}
	}
	return nil
}
