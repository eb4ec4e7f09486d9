package driving

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// WebhookRouter maps validated provider events to connector work. Routing
// only enqueues; long-running sync work happens asynchronously so the HTTP
// handler can acknowledge immediately.
type WebhookRouter interface {
	Route(ctx context.Context, event domain.Event) error
}

// BotService handles inbound chat messages in bot mode.
type BotService interface {
	// HandleMessage records the inbound message (deduplicating webhook
	// redeliveries) and enqueues the assistant reply. Messages from
	// senders outside the connector's email-domain whitelist are dropped.
	HandleMessage(ctx context.Context, connectorID string, event domain.Event) error

	// Reply runs the assistant round-trip for a recorded message and
	// posts the answer back to the provider thread.
	Reply(ctx context.Context, connectorID, botMessageID string) error
}
