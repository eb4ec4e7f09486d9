package driven

import "context"

// CredentialBroker resolves and refreshes provider access tokens through the
// connection-management service. Implementations memoize tokens with a short
// TTL so a single sync run does not hammer the broker.
type CredentialBroker interface {
	// AccessToken returns a valid access token for the connection.
	// Returns domain.ErrAuthExpired if the connection was deleted
	// upstream; this is fatal for the calling sync run but the connector
	// can be re-provisioned by re-auth.
	AccessToken(ctx context.Context, connectionID string) (string, error)

	// Revoke deletes the upstream connection during teardown.
	Revoke(ctx context.Context, connectionID string) error
}
