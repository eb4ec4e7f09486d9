// Package config loads service configuration from a file and the
// environment. Every external collaborator the service talks to is
// configured here; missing secrets fail at startup, never per-request.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

// Config is the top-level service configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Slack       SlackConfig       `mapstructure:"slack"`
	Connections ConnectionsConfig `mapstructure:"connections"`
	Search      SearchConfig      `mapstructure:"search"`
	Assistant   AssistantConfig   `mapstructure:"assistant"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

// ServerConfig controls the HTTP listener and its secrets.
type ServerConfig struct {
	Listen        string   `mapstructure:"listen"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
	APISecret     string   `mapstructure:"api_secret"`
	WebhookSecret string   `mapstructure:"webhook_secret"`
}

// StorageConfig selects the persistence backend. DataDir defaults to
// ~/.connectors/data when empty.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

// SlackConfig holds Slack application settings shared by all connectors.
type SlackConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
}

// ConnectionsConfig points at the external connection-management service
// that brokers provider credentials.
type ConnectionsConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

// SearchConfig points at the search-index service documents are ingested
// into.
type SearchConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// AssistantConfig points at the assistant conversation service used in bot
// mode.
type AssistantConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// SchedulerConfig sets the periodic maintenance intervals.
type SchedulerConfig struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	GCInterval   time.Duration `mapstructure:"gc_interval"`
}

// Load reads configuration from the given path (or defaults only when empty)
// with environment variable overrides (prefix CONNECTORS_).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.listen", "127.0.0.1:3002")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("scheduler.sync_interval", 10*time.Minute)
	v.SetDefault("scheduler.gc_interval", time.Hour)

	v.SetEnvPrefix("CONNECTORS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %v: %w", path, err, domain.ErrConfiguration)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %v: %w", err, domain.ErrConfiguration)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %v: %w", errors.Join(errs...), domain.ErrConfiguration)
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	} else if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen must be a valid host:port address, got %q", c.Server.Listen))
	}
	if c.Server.APISecret == "" {
		errs = append(errs, errors.New("server.api_secret must not be empty"))
	}
	if c.Server.WebhookSecret == "" {
		errs = append(errs, errors.New("server.webhook_secret must not be empty"))
	}

	switch c.Storage.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of [sqlite, memory], got %q", c.Storage.Backend))
	}

	if c.Slack.SigningSecret == "" {
		errs = append(errs, errors.New("slack.signing_secret must not be empty"))
	}
	if c.Connections.URL == "" {
		errs = append(errs, errors.New("connections.url must not be empty"))
	}
	if c.Connections.Secret == "" {
		errs = append(errs, errors.New("connections.secret must not be empty"))
	}
	if c.Search.URL == "" {
		errs = append(errs, errors.New("search.url must not be empty"))
	}
	if c.Search.APIKey == "" {
		errs = append(errs, errors.New("search.api_key must not be empty"))
	}
	if c.Assistant.URL == "" {
		errs = append(errs, errors.New("assistant.url must not be empty"))
	}

	if c.Scheduler.SyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.sync_interval must be greater than 0, got %s", c.Scheduler.SyncInterval))
	}
	if c.Scheduler.GCInterval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.gc_interval must be greater than 0, got %s", c.Scheduler.GCInterval))
	}

	return errs
}
