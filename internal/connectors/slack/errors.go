package slack

import (
	"errors"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// Slack-specific errors.
var (
	// ErrInvalidCursor indicates the cursor format is invalid.
	ErrInvalidCursor = errors.New("slack: invalid cursor format")

	// ErrChannelNotFound indicates the channel no longer exists or is not
	// visible to the bot.
	ErrChannelNotFound = errors.New("slack: channel not found")
)

// Slack API error strings that mean the credential is dead. The connector
// moves to an errored state instead of retrying.
var authErrorCodes = map[string]bool{
	"invalid_auth":     true,
	"not_authed":       true,
	"token_revoked":    true,
	"token_expired":    true,
	"account_inactive": true,
}

// mapError translates a slack-go API error into the domain error taxonomy.
// Errors that do not map stay as-is, wrapped with the failing operation.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var rle *slackapi.RateLimitedError
	if errors.As(err, &rle) {
		return fmt.Errorf("%s: %w", op, domain.ErrRateLimited)
	}

	switch err.Error() {
	case "channel_not_found", "is_archived", "user_not_found":
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if authErrorCodes[err.Error()] {
		return fmt.Errorf("%s: %w", op, domain.ErrAuthExpired)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// isRetryable reports whether the error is worth another attempt: a 429 with
// Retry-After or a transient server-side failure.
func isRetryable(err error) bool {
	var rle *slackapi.RateLimitedError
	if errors.As(err, &rle) {
		return rle.Retryable()
	}
	var sce slackapi.StatusCodeError
	if errors.As(err, &sce) {
		return sce.Code >= 500
	}
	return false
}
