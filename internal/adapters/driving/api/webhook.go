package api

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dust-tt/connectors-go/internal/connectors/slack"
	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// maxWebhookBody bounds the request body read. Slack events are small;
// anything larger is hostile.
const maxWebhookBody = 1 << 20

// handleWebhook ingests provider event deliveries. The path secret and the
// payload signature are both checked before anything is parsed; a failed
// check returns 401 with no side effects. Valid events are routed to the
// queue so the provider gets its acknowledgement fast.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.WebhookSecret)) != 1 {
		writeUnauthorized(w, "invalid webhook secret")
		return
	}

	provider := domain.Provider(chi.URLParam(r, "provider"))
	if !provider.Valid() {
		writeError(w, domain.ErrNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	if err := slack.VerifySignature(r.Header, body, s.cfg.SlackSigningSecret); err != nil {
		logger.Warn("webhook signature rejected: %v", err)
		writeUnauthorized(w, "invalid signature")
		return
	}

	hook, err := slack.ParseWebhook(body)
	if err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	if hook.Challenge != "" {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": hook.Challenge})
		return
	}

	for _, event := range hook.Events {
		if err := s.services.Webhooks.Route(r.Context(), event); err != nil {
			// The delivery is acknowledged regardless; Slack retries
			// whole payloads and routing is idempotent, but a retry storm
			// on a persistent failure helps nobody.
			logger.Error("routing webhook event %s for team %s: %v", event.Kind, event.TeamID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
