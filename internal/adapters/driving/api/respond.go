package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// errorBody is the fixed error envelope returned by every endpoint.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("encoding response: %v", err)
	}
}

// writeError maps domain errors to HTTP statuses and the error envelope.
func writeError(w http.ResponseWriter, err error) {
	status, errType := http.StatusInternalServerError, "internal_server_error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, errType = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		status, errType = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAuthExpired):
		status, errType = http.StatusUnauthorized, "provider_auth_expired"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, errType = http.StatusConflict, "already_exists"
	case errors.Is(err, domain.ErrSyncInProgress):
		status, errType = http.StatusConflict, "sync_in_progress"
	case errors.Is(err, domain.ErrConnectorPaused):
		status, errType = http.StatusBadRequest, "connector_paused"
	case errors.Is(err, domain.ErrConnectorErrored):
		status, errType = http.StatusBadRequest, "connector_errored"
	case errors.Is(err, domain.ErrConnectorDeleted):
		status, errType = http.StatusBadRequest, "connector_deleted"
	case errors.Is(err, domain.ErrExternalRevoke):
		status, errType = http.StatusBadGateway, "external_revoke_failed"
	case errors.Is(err, domain.ErrRateLimited):
		status, errType = http.StatusTooManyRequests, "rate_limited"
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	}

	writeJSON(w, status, errorBody{Error: errorDetail{Type: errType, Message: err.Error()}})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{
		Error: errorDetail{Type: "not_authenticated", Message: message},
	})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
