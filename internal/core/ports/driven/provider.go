package driven

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// ProviderResource is one external object as reported by the provider API,
// before it is persisted to the mirror store.
type ProviderResource struct {
	// ExternalID is the provider-side identifier.
	ExternalID string

	// Title is the provider-side display name.
	Title string

	// Type classifies the resource.
	Type domain.ResourceType

	// ParentExternalID links to the parent, empty for flat providers.
	ParentExternalID string

	// SourceURL is the canonical provider URL.
	SourceURL string

	// IsMember is true when the bot/app is a member of the resource.
	IsMember bool

	// Archived is true for archived or otherwise inactive resources.
	Archived bool

	// UpdatedAt is the provider-side last-change timestamp in Unix
	// seconds, zero if the provider does not report one.
	UpdatedAt int64
}

// ResourcePage is one page of a paginated resource listing.
type ResourcePage struct {
	Resources []ProviderResource

	// NextCursor requests the following page; empty when done.
	NextCursor string
}

// ResourceContent is the ingestable content of one resource.
type ResourceContent struct {
	ExternalID string
	Title      string
	Body       string
	SourceURL  string
}

// ProviderClient issues authenticated calls to the external provider API.
// Implementations retry rate-limit responses with provider-specified backoff
// and surface domain.ErrAuthExpired when the credential is no longer valid,
// so the orchestrator halts instead of retrying forever. No local state.
type ProviderClient interface {
	// ListResources returns one page of resources starting at cursor.
	ListResources(ctx context.Context, cursor string) (*ResourcePage, error)

	// GetResource fetches a single resource.
	// Returns domain.ErrNotFound if it no longer exists.
	GetResource(ctx context.Context, externalID string) (*ProviderResource, error)

	// FetchContent retrieves the ingestable content for a resource.
	FetchContent(ctx context.Context, externalID string, since int64) (*ResourceContent, error)

	// JoinResource makes the bot join a resource (bot-join side effect of
	// granting read access).
	JoinResource(ctx context.Context, externalID string) error

	// PostMessage posts a chat message, threaded when threadTS is set.
	PostMessage(ctx context.Context, channelID, threadTS, text string) error

	// GetUserEmail resolves the email address of a provider user.
	// Returns domain.ErrNotFound for unknown users.
	GetUserEmail(ctx context.Context, userID string) (string, error)

	// ValidateAuth verifies the credential and returns the external team
	// identity. Used at connector creation and on resume.
	ValidateAuth(ctx context.Context) (teamID, teamName string, err error)

	// RevokeAuth revokes the provider-side authorization. Called during
	// teardown of the last connector for an external account.
	RevokeAuth(ctx context.Context) error
}

// ProviderFactory constructs a provider client for a connector from
// credentials resolved at call time. There is no shared global client; each
// sync run gets its own.
type ProviderFactory interface {
	Client(ctx context.Context, connector *domain.Connector) (ProviderClient, error)
}
