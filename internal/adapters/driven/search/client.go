// Package search implements the client for the external semantic-search
// data-store service the connectors ingest into.
package search

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

const requestTimeout = 30 * time.Second

// Ensure Client implements the interface.
var _ driven.SearchIndex = (*Client)(nil)

// Client talks to the search-index service over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a search-index client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// UpsertDocument creates or replaces a document in a data source.
func (c *Client) UpsertDocument(ctx context.Context, dataSourceID string, doc driven.IndexDocument) error {
	body, err := json.Marshal(map[string]any{
		"title":        doc.Title,
		"text":         doc.Body,
		"source_url":   doc.SourceURL,
		"timestamp_ms": doc.TimestampMs,
	})
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	endpoint := fmt.Sprintf("%s/data_sources/%s/documents/%s",
		c.baseURL, url.PathEscape(dataSourceID), url.PathEscape(doc.DocumentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building upsert request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upsert %s failed with status %d", doc.DocumentID, resp.StatusCode)
	}
	return nil
}

// DeleteDocument removes a document from a data source. A 404 means the
// document is already gone, which satisfies the deletion contract.
func (c *Client) DeleteDocument(ctx context.Context, dataSourceID, documentID string) error {
	endpoint := fmt.Sprintf("%s/data_sources/%s/documents/%s",
		c.baseURL, url.PathEscape(dataSourceID), url.PathEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent &&
		resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete %s failed with status %d", documentID, resp.StatusCode)
	}
	return nil
}
