package domain

import "time"

// BotMessage records one inbound chat trigger from the provider, correlated
// to the downstream assistant conversation. Created on receipt, completed
// once the assistant's answer has been posted back.
type BotMessage struct {
	// ID is the unique identifier for the record.
	ID string

	// ConnectorID is the connector the message arrived through.
	ConnectorID string

	// ChannelID is the provider channel the message was posted in.
	ChannelID string

	// MessageTS is the provider message timestamp. Together with
	// ConnectorID and ChannelID it deduplicates webhook redeliveries.
	MessageTS string

	// ThreadTS is the thread root timestamp, if the message is threaded.
	ThreadTS string

	// Text is the inbound message body forwarded to the assistant.
	Text string

	// ConversationID is the downstream assistant conversation identifier.
	ConversationID string

	// Completed is set once the answer was posted.
	Completed bool

	// CreatedAt is when the record was created.
	CreatedAt time.Time
}
