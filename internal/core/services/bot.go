package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// Ensure BotService implements the interface.
var _ driving.BotService = (*BotService)(nil)

// BotService answers chat messages addressed to the bot through the
// assistant conversation API.
type BotService struct {
	connectors driven.ConnectorStore
	messages   driven.BotMessageStore
	factory    driven.ProviderFactory
	assistant  driven.AssistantClient
	queue      driven.WorkflowQueue
}

// NewBotService creates a bot service.
func NewBotService(
	connectors driven.ConnectorStore,
	messages driven.BotMessageStore,
	factory driven.ProviderFactory,
	assistant driven.AssistantClient,
	queue driven.WorkflowQueue,
) *BotService {
	return &BotService{
		connectors: connectors,
		messages:   messages,
		factory:    factory,
		assistant:  assistant,
		queue:      queue,
	}
}

// HandleMessage records the inbound message and enqueues the reply. Webhook
// redeliveries of the same (channel, ts) pair are dropped, as are senders
// outside the configured email-domain whitelist.
func (s *BotService) HandleMessage(ctx context.Context, connectorID string, event domain.Event) error {
	if event.Kind != domain.EventMessage {
		return fmt.Errorf("event kind %q: %w", event.Kind, domain.ErrInvalidInput)
	}

	existing, err := s.messages.GetByMessage(ctx, connectorID, event.ResourceID, event.MessageTS)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check for duplicate: %w", err)
	}
	if existing != nil {
		logger.Debug("Dropping redelivered message %s in %s", event.MessageTS, event.ResourceID)
		return nil
	}

	allowed, err := s.senderAllowed(ctx, connectorID, event.UserID)
	if err != nil {
		return err
	}
	if !allowed {
		logger.Debug("Dropping message from non-whitelisted user %s for connector %s", event.UserID, connectorID)
		return nil
	}

	msg := domain.BotMessage{
		ID:          uuid.NewString(),
		ConnectorID: connectorID,
		ChannelID:   event.ResourceID,
		MessageTS:   event.MessageTS,
		ThreadTS:    event.ThreadTS,
		Text:        event.MessageText,
		CreatedAt:   time.Now(),
	}
	if err := s.messages.Save(ctx, msg); err != nil {
		return fmt.Errorf("save bot message: %w", err)
	}

	return s.queue.EnqueueBotReply(ctx, connectorID, msg.ID)
}

// senderAllowed checks the sender against the configured email-domain
// whitelist. An absent configuration or an empty whitelist allows everyone;
// a configured whitelist fails closed when the email cannot be resolved.
func (s *BotService) senderAllowed(ctx context.Context, connectorID, userID string) (bool, error) {
	cfg, err := s.connectors.GetConfiguration(ctx, connectorID)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get configuration: %w", err)
	}
	if len(cfg.WhitelistedDomains) == 0 {
		return true, nil
	}

	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return false, fmt.Errorf("get connector: %w", err)
	}
	client, err := s.factory.Client(ctx, connector)
	if err != nil {
		return false, fmt.Errorf("create provider client: %w", err)
	}
	email, err := client.GetUserEmail(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get user email: %w", err)
	}

	_, emailDomain, found := strings.Cut(email, "@")
	if !found {
		return false, nil
	}
	for _, allowed := range cfg.WhitelistedDomains {
		if strings.EqualFold(allowed, emailDomain) {
			return true, nil
		}
	}
	return false, nil
}

// Reply runs the assistant round-trip for a recorded message and posts the
// answer back to the provider thread. Completed messages are skipped so a
// retried job never posts twice.
func (s *BotService) Reply(ctx context.Context, connectorID, botMessageID string) error {
	msg, err := s.messages.Get(ctx, botMessageID)
	if err != nil {
		return fmt.Errorf("get bot message: %w", err)
	}
	if msg.Completed {
		return nil
	}

	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}

	answer, err := s.assistant.Answer(ctx, connector.WorkspaceID, msg.ConversationID, msg.Text)
	if err != nil {
		return fmt.Errorf("assistant answer: %w", err)
	}

	// Remember the conversation before posting: if the post fails and the
	// job retries, the follow-up continues the same conversation.
	msg.ConversationID = answer.ConversationID
	if err := s.messages.Save(ctx, *msg); err != nil {
		return fmt.Errorf("save conversation id: %w", err)
	}

	client, err := s.factory.Client(ctx, connector)
	if err != nil {
		return fmt.Errorf("create provider client: %w", err)
	}

	// Replies thread under the triggering message.
	threadTS := msg.ThreadTS
	if threadTS == "" {
		threadTS = msg.MessageTS
	}
	if err := client.PostMessage(ctx, msg.ChannelID, threadTS, answer.Text); err != nil {
		return fmt.Errorf("post answer: %w", err)
	}

	msg.Completed = true
	if err := s.messages.Save(ctx, *msg); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}
