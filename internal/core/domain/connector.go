package domain

import "time"

// Provider identifies the external system a connector integrates with.
type Provider string

// Supported providers.
const (
	ProviderSlack Provider = "slack"
)

// Valid returns true for a known provider.
func (p Provider) Valid() bool {
	return p == ProviderSlack
}

// ConnectorState is the lifecycle state of a connector.
// Transitions are driven by the lifecycle manager and the sync orchestrator:
//
//	created -> full_sync -> incremental_sync <-> paused
//	any non-terminal state -> errored -> incremental_sync (on resume)
//	any state -> deleted (terminal)
type ConnectorState string

// Connector lifecycle states.
const (
	StateCreated         ConnectorState = "created"
	StateFullSync        ConnectorState = "full_sync"
	StateIncrementalSync ConnectorState = "incremental_sync"
	StatePaused          ConnectorState = "paused"
	StateErrored         ConnectorState = "errored"
	StateDeleted         ConnectorState = "deleted"
)

// Valid returns true for a known connector state.
func (s ConnectorState) Valid() bool {
	switch s {
	case StateCreated, StateFullSync, StateIncrementalSync, StatePaused, StateErrored, StateDeleted:
		return true
	}
	return false
}

// Syncable reports whether sync triggers should run in this state.
// Paused connectors ignore triggers; errored connectors wait for resume.
func (s ConnectorState) Syncable() bool {
	return s == StateCreated || s == StateFullSync || s == StateIncrementalSync
}

// CanTransition reports whether a state change is allowed.
func (s ConnectorState) CanTransition(to ConnectorState) bool {
	if s == StateDeleted {
		return false // terminal
	}
	if to == StateDeleted || to == StateErrored {
		return true
	}
	switch s {
	case StateCreated:
		return to == StateFullSync || to == StatePaused
	case StateFullSync:
		return to == StateIncrementalSync || to == StatePaused
	case StateIncrementalSync:
		return to == StateIncrementalSync || to == StateFullSync || to == StatePaused
	case StatePaused:
		return to == StateIncrementalSync || to == StateFullSync
	case StateErrored:
		// Resume re-validates credentials before allowing sync again.
		return to == StateIncrementalSync || to == StateFullSync
	}
	return false
}

// Connector is one external-system integration instance owned by a workspace.
type Connector struct {
	// ID is the unique identifier for the connector.
	ID string

	// Provider identifies the external system ("slack").
	Provider Provider

	// WorkspaceID is the owning product workspace.
	WorkspaceID string

	// DataSourceID is the target document store for ingested content.
	DataSourceID string

	// ConnectionID is the opaque credential handle resolved by the
	// credential broker. Rotated on re-authentication.
	ConnectionID string

	// DefaultPermission is applied to resources on first discovery.
	DefaultPermission Permission

	// State is the current lifecycle state.
	State ConnectorState

	// ErrorType records why the connector entered the errored state
	// ("auth_expired", "uninstalled"). Empty otherwise.
	ErrorType string

	// CreatedAt is when the connector was created.
	CreatedAt time.Time

	// UpdatedAt is when the connector was last updated.
	UpdatedAt time.Time

	// LastSyncAt is when the last successful sync completed.
	LastSyncAt time.Time
}

// Error type markers for the errored state.
const (
	ErrorTypeAuthExpired = "auth_expired"
	ErrorTypeUninstalled = "uninstalled"
)

// SlackConfiguration holds provider-specific settings for a Slack connector.
// Exactly one configuration row exists per connector; several connectors may
// share the same TeamID (multi-workspace installs of one Slack org).
type SlackConfiguration struct {
	// ConnectorID links to the owning connector (1:1).
	ConnectorID string

	// TeamID is the external Slack team identifier.
	TeamID string

	// TeamName is the Slack team display name, captured at creation.
	TeamName string

	// BotEnabled controls whether chat-bot message handling is active.
	BotEnabled bool

	// WhitelistedDomains restricts bot answers to users from these email
	// domains. Empty means no restriction.
	WhitelistedDomains []string
}
