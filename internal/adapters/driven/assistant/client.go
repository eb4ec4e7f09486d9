// Package assistant implements the client for the product's conversation
// API. The chat bot submits user messages here and posts the answers back to
// the provider.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// requestTimeout covers the full assistant round-trip, which includes model
// generation.
const requestTimeout = 2 * time.Minute

// Ensure Client implements the interface.
var _ driven.AssistantClient = (*Client)(nil)

// Client talks to the assistant conversation service over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates an assistant client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type answerRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

type answerResponse struct {
	ConversationID string `json:"conversationId"`
	Answer         string `json:"answer"`
}

// Answer submits a user message and returns the assistant's reply. An empty
// conversationID starts a new conversation; the returned ID is stable for
// follow-ups.
func (c *Client) Answer(ctx context.Context, workspaceID, conversationID, message string) (*driven.AssistantAnswer, error) {
	body, err := json.Marshal(answerRequest{
		ConversationID: conversationID,
		Message:        message,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling answer request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/workspaces/%s/assistant/conversations",
		c.baseURL, url.PathEscape(workspaceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building answer request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assistant answered with status %d", resp.StatusCode)
	}

	var parsed answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding assistant response: %w", err)
	}
	if parsed.Answer == "" {
		return nil, fmt.Errorf("assistant returned an empty answer")
	}

	return &driven.AssistantAnswer{
		ConversationID: parsed.ConversationID,
		Text:           parsed.Answer,
	}, nil
}
