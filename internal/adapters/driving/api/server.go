// Package api exposes the connector service over HTTP: the product-facing
// management endpoints and the provider webhook ingress.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// APISecret is the bearer token required on management endpoints.
	APISecret string

	// WebhookSecret is the shared secret embedded in the webhook path.
	WebhookSecret string

	// SlackSigningSecret verifies Slack webhook signatures.
	SlackSigningSecret string
}

// Services bundles the driving ports the handlers call.
type Services struct {
	Lifecycle   driving.LifecycleService
	Permissions driving.PermissionService
	Sync        driving.SyncOrchestrator
	Webhooks    driving.WebhookRouter
}

// Server wraps a chi router and the HTTP server lifecycle.
type Server struct {
	router   chi.Router
	cfg      Config
	services Services
}

// New creates a Server with middleware, health endpoint and all routes.
func New(cfg Config, services Services) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("api secret is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	s := &Server{cfg: cfg, services: services}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/connectors", func(r chi.Router) {
		r.Use(s.bearerAuth)

		r.Post("/create/{provider}", s.handleCreate)
		r.Post("/update/{connectorID}", s.handleUpdate)
		r.Post("/stop/{connectorID}", s.handleStop)
		r.Post("/resume/{connectorID}", s.handleResume)
		r.Delete("/delete/{connectorID}", s.handleDelete)
		r.Post("/sync/{connectorID}", s.handleSync)
		r.Get("/{connectorID}", s.handleGet)
		r.Get("/{connectorID}/permissions", s.handleListPermissions)
		r.Post("/{connectorID}/permissions", s.handleSetPermissions)
		r.Post("/{connectorID}/resources/parents", s.handleResourceParents)
		r.Post("/{connectorID}/resources/titles", s.handleResourceTitles)
		r.Get("/{connectorID}/bot_enabled", s.handleGetBotEnabled)
		r.Post("/{connectorID}/bot_enabled", s.handleSetBotEnabled)
	})

	r.Post("/webhooks/{secret}/{provider}", s.handleWebhook)

	s.router = r
	return s, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("HTTP server listening on %s", s.cfg.ListenAddr)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})
}
