package driven

import "context"

// AssistantAnswer is the assistant's reply for one bot message.
type AssistantAnswer struct {
	// ConversationID identifies the assistant conversation the exchange
	// belongs to, for correlation on follow-up messages.
	ConversationID string

	// Text is the rendered answer to post back to the provider.
	Text string
}

// AssistantClient calls the product's assistant conversation API on behalf
// of the chat bot. External collaborator; only the interface is consumed.
type AssistantClient interface {
	// Answer submits a user message and returns the assistant's reply.
	// An empty conversationID starts a new conversation.
	Answer(ctx context.Context, workspaceID, conversationID, message string) (*AssistantAnswer, error)
}
