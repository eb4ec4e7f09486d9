package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
server:
  listen: "127.0.0.1:3002"
  api_secret: "api-secret"
  webhook_secret: "hook-secret"
slack:
  signing_secret: "signing-secret"
connections:
  url: "http://connections.local"
  secret: "connections-secret"
search:
  url: "http://search.local"
  api_key: "search-key"
assistant:
  url: "http://assistant.local"
  api_key: "assistant-key"
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:3002", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.DataDir)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.SyncInterval)
	assert.Equal(t, time.Hour, cfg.Scheduler.GCInterval)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  listen: "127.0.0.1:3002"
`))
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "api_secret")
	assert.ErrorContains(t, err, "signing_secret")
}

func TestLoadRejectsBadListenAddress(t *testing.T) {
	broken := strings.Replace(validConfig, `"127.0.0.1:3002"`, `"not-an-address"`, 1)
	_, err := Load(writeConfig(t, broken))
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "server.listen")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+`
storage:
  backend: "postgres"
`))
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "storage.backend")
}

func TestLoadMemoryBackendNeedsNoPath(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig+`
storage:
  backend: "memory"
`))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("CONNECTORS_SERVER_LISTEN", "127.0.0.1:9999")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
