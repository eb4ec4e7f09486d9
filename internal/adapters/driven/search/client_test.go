package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

func TestUpsertDocument(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key")
	err := client.UpsertDocument(context.Background(), "ds1", driven.IndexDocument{
		DocumentID:  "slack-channel-C1",
		Title:       "general",
		Body:        "hello",
		SourceURL:   "https://acme.slack.com/archives/C1",
		TimestampMs: 1700000000000,
	})
	require.NoError(t, err)
	assert.Equal(t, "/data_sources/ds1/documents/slack-channel-C1", gotPath)
	assert.Equal(t, "general", gotBody["title"])
	assert.Equal(t, "hello", gotBody["text"])
}

func TestUpsertDocumentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key")
	err := client.UpsertDocument(context.Background(), "ds1", driven.IndexDocument{DocumentID: "d1"})
	assert.Error(t, err)
}

func TestDeleteDocumentTreats404AsConfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key")
	assert.NoError(t, client.DeleteDocument(context.Background(), "ds1", "d1"))
}

func TestDeleteDocumentFailureIsNotConfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key")
	assert.Error(t, client.DeleteDocument(context.Background(), "ds1", "d1"))
}
