package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"giftstudio/internal/domain"
	"giftstudio/internal/domain/services"
	"giftstudio/internal/httputil"
)

// CurrentHandler exposes the project being edited
type CurrentHandler struct {
	store  services.ProjectStore
	logger *slog.Logger
}

// NewCurrentHandler creates a new current-project handler
func NewCurrentHandler(store services.ProjectStore, logger *slog.Logger) *CurrentHandler {
	return &CurrentHandler{
		store:  store,
		logger: logger,
	}
}

// SetCurrentRequest selects a project by id; a null id clears the selection
type SetCurrentRequest struct {
	ID *string `json:"id"`
}

// RevisionResponse is the body of GET /api/current/revision
type RevisionResponse struct {
	CurrentID string `json:"currentId,omitempty"`
	Revision  uint64 `json:"revision"`
}

// GetCurrent returns the current project
// GET /api/current
func (h *CurrentHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	project, ok := h.store.CurrentProject()
	if !ok {
		handleError(w, domain.ErrNoCurrent)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, project)
}

// SetCurrent activates a project (running the consistency repair) or clears the selection
// PUT /api/current
func (h *CurrentHandler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	var req SetCurrentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ID == nil {
		h.store.SetCurrentProject(nil)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	project, ok := h.store.Project(*req.ID)
	if !ok {
		handleError(w, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", *req.ID)})
		return
	}
	h.store.SetCurrentProject(&project)

	current, _ := h.store.CurrentProject()
	httputil.RespondJSON(w, http.StatusOK, current)
}

// SaveCurrent persists the current project immediately
// POST /api/current/save
func (h *CurrentHandler) SaveCurrent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.store.CurrentProject(); !ok {
		handleError(w, domain.ErrNoCurrent)
		return
	}
	h.store.SaveCurrentProject(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetRevision returns the dirty counter of the current project
// GET /api/current/revision
func (h *CurrentHandler) GetRevision(w http.ResponseWriter, r *http.Request) {
	resp := RevisionResponse{Revision: h.store.Revision()}
	if current, ok := h.store.CurrentProject(); ok {
		resp.CurrentID = current.ID
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
