package slack

import (
	"fmt"
	"net/http"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// Config holds the settings for a Slack client.
type Config struct {
	// Token is the bot access token resolved from the credential broker.
	Token string

	// APIURL overrides the Slack API base URL. Used in tests; must end
	// with a slash. Empty means the real API.
	APIURL string

	// HTTPClient overrides the HTTP client. Nil means a default client.
	HTTPClient *http.Client

	// PageSize is the conversations.list page size. Zero means
	// DefaultPageSize.
	PageSize int
}

// DefaultPageSize is the conversations.list page size.
const DefaultPageSize = 200

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("missing token: %w", domain.ErrConfiguration)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("negative page size: %w", domain.ErrConfiguration)
	}
	return nil
}

func (c *Config) pageSize() int {
	if c.PageSize == 0 {
		return DefaultPageSize
	}
	return c.PageSize
}
