package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
)

type createConnectorRequest struct {
	WorkspaceID       string `json:"workspaceId"`
	DataSourceID      string `json:"dataSourceId"`
	ConnectionID      string `json:"connectionId"`
	DefaultPermission string `json:"defaultPermission"`
}

type createConnectorResponse struct {
	ConnectorID string `json:"connectorId"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	provider := domain.Provider(chi.URLParam(r, "provider"))

	var body createConnectorRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	permission := domain.Permission(body.DefaultPermission)
	if body.DefaultPermission == "" {
		permission = domain.PermissionRead
	}

	connector, err := s.services.Lifecycle.Create(r.Context(), driving.CreateConnectorRequest{
		Provider:          provider,
		WorkspaceID:       body.WorkspaceID,
		DataSourceID:      body.DataSourceID,
		ConnectionID:      body.ConnectionID,
		DefaultPermission: permission,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createConnectorResponse{ConnectorID: connector.ID})
}

type updateConnectorRequest struct {
	ConnectionID      string `json:"connectionId,omitempty"`
	DefaultPermission string `json:"defaultPermission,omitempty"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body updateConnectorRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	err := s.services.Lifecycle.Update(r.Context(), chi.URLParam(r, "connectorID"), driving.UpdateConnectorRequest{
		ConnectionID:      body.ConnectionID,
		DefaultPermission: domain.Permission(body.DefaultPermission),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type connectorResponse struct {
	ID                string `json:"id"`
	Provider          string `json:"provider"`
	WorkspaceID       string `json:"workspaceId"`
	DataSourceID      string `json:"dataSourceId"`
	DefaultPermission string `json:"defaultPermission"`
	State             string `json:"state"`
	ErrorType         string `json:"errorType,omitempty"`
	TeamID            string `json:"teamId,omitempty"`
	TeamName          string `json:"teamName,omitempty"`
	LastSyncAt        string `json:"lastSyncAt,omitempty"`
	CreatedAt         string `json:"createdAt"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Lifecycle.Get(r.Context(), chi.URLParam(r, "connectorID"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := connectorResponse{
		ID:                status.Connector.ID,
		Provider:          string(status.Connector.Provider),
		WorkspaceID:       status.Connector.WorkspaceID,
		DataSourceID:      status.Connector.DataSourceID,
		DefaultPermission: string(status.Connector.DefaultPermission),
		State:             string(status.Connector.State),
		ErrorType:         status.Connector.ErrorType,
		TeamID:            status.Configuration.TeamID,
		TeamName:          status.Configuration.TeamName,
		CreatedAt:         status.Connector.CreatedAt.Format(time.RFC3339),
	}
	if !status.Connector.LastSyncAt.IsZero() {
		resp.LastSyncAt = status.Connector.LastSyncAt.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Lifecycle.Stop(r.Context(), chi.URLParam(r, "connectorID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Lifecycle.Resume(r.Context(), chi.URLParam(r, "connectorID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Lifecycle.Delete(r.Context(), chi.URLParam(r, "connectorID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	connectorID := chi.URLParam(r, "connectorID")
	if err := s.services.Sync.Trigger(r.Context(), connectorID, nil); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"workflowId": fmt.Sprintf("sync-%s", connectorID)})
}

type permissionsResponse struct {
	Resources []domain.ResourceNode `json:"resources"`
}

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	filter := domain.Permission(r.URL.Query().Get("filter"))
	if filter != "" && !filter.Valid() {
		writeError(w, fmt.Errorf("%w: unknown permission filter %q", domain.ErrInvalidInput, filter))
		return
	}

	nodes, err := s.services.Permissions.ListPermissions(
		r.Context(),
		chi.URLParam(r, "connectorID"),
		r.URL.Query().Get("parentId"),
		filter,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	if nodes == nil {
		nodes = []domain.ResourceNode{}
	}

	writeJSON(w, http.StatusOK, permissionsResponse{Resources: nodes})
}

type setPermissionsRequest struct {
	Resources map[string]string `json:"resources"`
}

func (s *Server) handleSetPermissions(w http.ResponseWriter, r *http.Request) {
	var body setPermissionsRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	perms := make(map[string]domain.Permission, len(body.Resources))
	for externalID, permission := range body.Resources {
		perms[externalID] = domain.Permission(permission)
	}

	if err := s.services.Permissions.SetPermissions(r.Context(), chi.URLParam(r, "connectorID"), perms); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type resourceIDsRequest struct {
	ResourceInternalIDs []string `json:"resourceInternalIds"`
}

func (s *Server) handleResourceParents(w http.ResponseWriter, r *http.Request) {
	var body resourceIDsRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	parents, err := s.services.Permissions.ResourceParents(r.Context(), chi.URLParam(r, "connectorID"), body.ResourceInternalIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"parents": parents})
}

func (s *Server) handleResourceTitles(w http.ResponseWriter, r *http.Request) {
	var body resourceIDsRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	titles, err := s.services.Permissions.ResourceTitles(r.Context(), chi.URLParam(r, "connectorID"), body.ResourceInternalIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

func (s *Server) handleGetBotEnabled(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.services.Lifecycle.BotEnabled(r.Context(), chi.URLParam(r, "connectorID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"botEnabled": enabled})
}

type setBotEnabledRequest struct {
	BotEnabled bool `json:"botEnabled"`
}

func (s *Server) handleSetBotEnabled(w http.ResponseWriter, r *http.Request) {
	var body setBotEnabledRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := s.services.Lifecycle.SetBotEnabled(r.Context(), chi.URLParam(r, "connectorID"), body.BotEnabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"botEnabled": body.BotEnabled})
}
