package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

func TestAccessTokenMemoized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"xoxb-token","expires_in":3600}`))
	}))
	defer srv.Close()

	broker := NewBroker(srv.URL, "secret")

	tok, err := broker.AccessToken(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-token", tok)

	// Second call within TTL hits the cache.
	tok, err = broker.AccessToken(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-token", tok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAccessTokenTTLExpiry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"access_token":"xoxb-token"}`))
	}))
	defer srv.Close()

	broker := NewBroker(srv.URL, "secret")
	broker.SetTTL(-time.Second) // Everything is immediately stale.

	_, err := broker.AccessToken(context.Background(), "conn-1")
	require.NoError(t, err)
	_, err = broker.AccessToken(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAccessTokenDeletedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	broker := NewBroker(srv.URL, "secret")
	_, err := broker.AccessToken(context.Background(), "conn-gone")
	assert.ErrorIs(t, err, domain.ErrAuthExpired)
}

func TestRevoke(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	broker := NewBroker(srv.URL, "secret")
	require.NoError(t, broker.Revoke(context.Background(), "conn-1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/connections/conn-1", path)
}

func TestRevokeGoneConnectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	broker := NewBroker(srv.URL, "secret")
	assert.NoError(t, broker.Revoke(context.Background(), "conn-1"))
}
