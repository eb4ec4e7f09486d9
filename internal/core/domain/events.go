package domain

// EventKind discriminates webhook event variants. The set is closed; the
// webhook router switches exhaustively over it.
type EventKind string

// Webhook event kinds.
const (
	// EventResourceChanged signals a provider-side change to one resource
	// (created, renamed, archived, unarchived, deleted).
	EventResourceChanged EventKind = "resource_changed"

	// EventMembershipChanged signals the bot being added to or removed
	// from a resource.
	EventMembershipChanged EventKind = "membership_changed"

	// EventMessage signals an inbound chat message addressed to the bot.
	EventMessage EventKind = "message"

	// EventUninstalled signals the app being removed from the external
	// team; the connector transitions to errored and teardown starts.
	EventUninstalled EventKind = "uninstalled"
)

// Event is a validated provider push notification, mapped from the raw
// webhook payload to a provider-neutral shape.
type Event struct {
	// Kind discriminates the variant.
	Kind EventKind

	// TeamID identifies the external team the event belongs to. Used to
	// look up the receiving connectors (several connectors may mirror the
	// same team).
	TeamID string

	// ResourceID is the affected resource for resource_changed and
	// membership_changed, and the channel for message events.
	ResourceID string

	// ResourceTitle carries the new title for rename events, if known.
	ResourceTitle string

	// Removed is true when the resource was deleted/archived, or when the
	// bot was removed for membership_changed.
	Removed bool

	// MessageTS and ThreadTS carry message identity for message events.
	MessageTS string
	ThreadTS  string

	// MessageText is the inbound message body for message events.
	MessageText string

	// UserID is the provider user who triggered the event, if any.
	UserID string
}
