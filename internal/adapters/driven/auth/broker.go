// Package auth implements the credential broker against the external
// connection-management service. Access tokens are memoized per connection
// with a short TTL so one sync run does not issue redundant broker calls.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

const (
	// DefaultTokenTTL bounds how long a resolved token is reused before
	// the broker is asked again.
	DefaultTokenTTL = 5 * time.Minute

	// requestTimeout is the HTTP timeout for broker calls.
	requestTimeout = 10 * time.Second
)

// Ensure Broker implements the interface.
var _ driven.CredentialBroker = (*Broker)(nil)

// Broker resolves provider access tokens through the connection-management
// service.
type Broker struct {
	baseURL   string
	secretKey string
	client    *http.Client
	ttl       time.Duration

	mu    sync.Mutex
	cache map[string]*oauth2.Token
}

// NewBroker creates a credential broker for the connection service at
// baseURL, authenticated with secretKey.
func NewBroker(baseURL, secretKey string) *Broker {
	return &Broker{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: requestTimeout},
		ttl:       DefaultTokenTTL,
		cache:     make(map[string]*oauth2.Token),
	}
}

// SetTTL overrides the memoization TTL. Useful for testing.
func (b *Broker) SetTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ttl = ttl
}

// AccessToken returns a valid access token for the connection.
func (b *Broker) AccessToken(ctx context.Context, connectionID string) (string, error) {
	b.mu.Lock()
	if tok, ok := b.cache[connectionID]; ok && tok.Valid() {
		b.mu.Unlock()
		return tok.AccessToken, nil
	}
	b.mu.Unlock()

	tok, err := b.fetchToken(ctx, connectionID)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.cache[connectionID] = tok
	b.mu.Unlock()

	return tok.AccessToken, nil
}

// fetchToken calls the connection service for a fresh token.
func (b *Broker) fetchToken(ctx context.Context, connectionID string) (*oauth2.Token, error) {
	url := fmt.Sprintf("%s/connections/%s/token", b.baseURL, connectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching token: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound, http.StatusGone:
		// Connection deleted upstream: fatal for this sync run, the
		// connector needs re-authentication.
		return nil, fmt.Errorf("connection %s: %w", connectionID, domain.ErrAuthExpired)
	default:
		return nil, fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("connection %s returned empty token: %w", connectionID, domain.ErrAuthExpired)
	}

	expiry := time.Now().Add(b.ttl)
	if body.ExpiresIn > 0 {
		upstream := time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
		if upstream.Before(expiry) {
			expiry = upstream
		}
	}

	return &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

// Revoke deletes the upstream connection during teardown.
func (b *Broker) Revoke(ctx context.Context, connectionID string) error {
	url := fmt.Sprintf("%s/connections/%s", b.baseURL, connectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.secretKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoking connection: %w", err)
	}
	defer resp.Body.Close()

	// A connection already gone upstream counts as revoked.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent &&
		resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("revoke failed with status %d", resp.StatusCode)
	}

	b.mu.Lock()
	delete(b.cache, connectionID)
	b.mu.Unlock()

	return nil
}
