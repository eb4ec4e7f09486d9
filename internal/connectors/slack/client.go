// Package slack implements the Slack provider: Web API client with
// dual-strategy rate limiting, opaque pagination cursors, and Events API
// payload mapping.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/logger"
)

const (
	// maxAttempts bounds retries per API call.
	maxAttempts = 3

	// retryBackoff is the base delay between retries of transient server
	// errors, doubled per attempt. Rate-limit pauses come from Retry-After
	// instead.
	retryBackoff = 2 * time.Second

	// maxHistoryPages caps the conversation transcript depth per fetch.
	maxHistoryPages = 10
)

// Ensure Client implements the interface.
var _ driven.ProviderClient = (*Client)(nil)

// Client issues authenticated Slack Web API calls for one connector.
type Client struct {
	api     *slackapi.Client
	config  Config
	limiter *RateLimiter

	mu       sync.Mutex
	teamID   string
	teamName string
}

// NewClient creates a Slack client from a resolved bot token.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []slackapi.Option{}
	if config.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(config.APIURL))
	}
	if config.HTTPClient != nil {
		opts = append(opts, slackapi.OptionHTTPClient(config.HTTPClient))
	}

	return &Client{
		api:     slackapi.New(config.Token, opts...),
		config:  config,
		limiter: NewRateLimiter(),
	}, nil
}

// call runs one API operation through the rate limiter, retrying 429s after
// their Retry-After window and transient server errors with backoff.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if errors.As(err, &rle) {
			c.limiter.Backoff(rle.RetryAfter)
		}

		if attempt >= maxAttempts || !isRetryable(err) {
			return mapError(op, err)
		}

		logger.Debug("slack: retrying %s after transient error (attempt %d): %v", op, attempt, err)
		if rle == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}
	}
}

// ListResources returns one page of public channels.
func (c *Client) ListResources(ctx context.Context, cursor string) (*driven.ResourcePage, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	var channels []slackapi.Channel
	var next string
	err = c.call(ctx, "conversations.list", func() error {
		var apiErr error
		channels, next, apiErr = c.api.GetConversationsContext(ctx, &slackapi.GetConversationsParameters{
			Cursor:          cur.Page,
			Limit:           c.config.pageSize(),
			Types:           []string{"public_channel"},
			ExcludeArchived: false,
		})
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	teamID, err := c.team(ctx)
	if err != nil {
		return nil, err
	}

	page := &driven.ResourcePage{
		NextCursor: (&Cursor{Version: CursorVersion, Page: next}).Encode(),
	}
	for _, ch := range channels {
		page.Resources = append(page.Resources, channelResource(teamID, ch))
	}
	return page, nil
}

// GetResource fetches a single channel.
func (c *Client) GetResource(ctx context.Context, externalID string) (*driven.ProviderResource, error) {
	var ch *slackapi.Channel
	err := c.call(ctx, "conversations.info", func() error {
		var apiErr error
		ch, apiErr = c.api.GetConversationInfoContext(ctx, &slackapi.GetConversationInfoInput{
			ChannelID: externalID,
		})
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	teamID, err := c.team(ctx)
	if err != nil {
		return nil, err
	}

	res := channelResource(teamID, *ch)
	return &res, nil
}

// FetchContent builds the ingestable transcript of a channel: message
// history since the given Unix timestamp, oldest first.
func (c *Client) FetchContent(ctx context.Context, externalID string, since int64) (*driven.ResourceContent, error) {
	res, err := c.GetResource(ctx, externalID)
	if err != nil {
		return nil, err
	}

	var messages []slackapi.Message
	params := &slackapi.GetConversationHistoryParameters{
		ChannelID: externalID,
		Limit:     c.config.pageSize(),
	}
	if since > 0 {
		params.Oldest = strconv.FormatInt(since, 10) + ".000000"
	}

	for page := 0; page < maxHistoryPages; page++ {
		var resp *slackapi.GetConversationHistoryResponse
		err := c.call(ctx, "conversations.history", func() error {
			var apiErr error
			resp, apiErr = c.api.GetConversationHistoryContext(ctx, params)
			return apiErr
		})
		if err != nil {
			return nil, err
		}

		messages = append(messages, resp.Messages...)
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}

	return &driven.ResourceContent{
		ExternalID: externalID,
		Title:      res.Title,
		Body:       transcript(messages),
		SourceURL:  res.SourceURL,
	}, nil
}

// transcript renders history messages oldest first, one line per message.
// Bot chatter and threaded/system subtypes are skipped.
func transcript(messages []slackapi.Message) string {
	var b strings.Builder
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.SubType != "" || msg.BotID != "" || msg.Text == "" {
			continue
		}
		b.WriteString(msg.User)
		b.WriteString(": ")
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// JoinResource makes the bot join a channel. Already being a member is not
// an error.
func (c *Client) JoinResource(ctx context.Context, externalID string) error {
	return c.call(ctx, "conversations.join", func() error {
		_, _, _, err := c.api.JoinConversationContext(ctx, externalID)
		if err != nil && err.Error() == "already_in_channel" {
			return nil
		}
		return err
	})
}

// PostMessage posts a chat message, threaded when threadTS is set.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(threadTS))
	}
	return c.call(ctx, "chat.postMessage", func() error {
		_, _, err := c.api.PostMessageContext(ctx, channelID, opts...)
		return err
	})
}

// GetUserEmail resolves the email address of a workspace user.
func (c *Client) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var user *slackapi.User
	err := c.call(ctx, "users.info", func() error {
		var apiErr error
		user, apiErr = c.api.GetUserInfoContext(ctx, userID)
		return apiErr
	})
	if err != nil {
		return "", err
	}
	return user.Profile.Email, nil
}

// ValidateAuth verifies the token and returns the workspace identity.
func (c *Client) ValidateAuth(ctx context.Context) (string, string, error) {
	var resp *slackapi.AuthTestResponse
	err := c.call(ctx, "auth.test", func() error {
		var apiErr error
		resp, apiErr = c.api.AuthTestContext(ctx)
		return apiErr
	})
	if err != nil {
		return "", "", err
	}

	c.mu.Lock()
	c.teamID = resp.TeamID
	c.teamName = resp.Team
	c.mu.Unlock()

	return resp.TeamID, resp.Team, nil
}

// RevokeAuth revokes the bot token workspace-side.
func (c *Client) RevokeAuth(ctx context.Context) error {
	return c.call(ctx, "auth.revoke", func() error {
		_, err := c.api.SendAuthRevokeContext(ctx, "")
		return err
	})
}

// team returns the memoized workspace ID, resolving it via auth.test on
// first use.
func (c *Client) team(ctx context.Context) (string, error) {
	c.mu.Lock()
	teamID := c.teamID
	c.mu.Unlock()
	if teamID != "" {
		return teamID, nil
	}

	teamID, _, err := c.ValidateAuth(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving team: %w", err)
	}
	return teamID, nil
}

// channelResource maps a Slack channel to the provider-neutral shape.
func channelResource(teamID string, ch slackapi.Channel) driven.ProviderResource {
	return driven.ProviderResource{
		ExternalID: ch.ID,
		Title:      ch.Name,
		Type:       domain.ResourceChannel,
		SourceURL:  fmt.Sprintf("https://app.slack.com/client/%s/%s", teamID, ch.ID),
		IsMember:   ch.IsMember,
		Archived:   ch.IsArchived,
		UpdatedAt:  int64(ch.Created),
	}
}
