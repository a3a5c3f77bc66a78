package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"giftstudio/internal/domain"
	"giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/services"
	"giftstudio/internal/httputil"
	"giftstudio/internal/service/validation"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

// ProjectHandler handles project collection HTTP requests
type ProjectHandler struct {
	store  services.ProjectStore
	logger *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(store services.ProjectStore, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		store:  store,
		logger: logger,
	}
}

// CreateProjectRequest is the body of POST /api/projects
type CreateProjectRequest struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
}

// Validate implements ozzo.Validatable
func (r *CreateProjectRequest) Validate() error {
	return ozzo.ValidateStruct(r,
		ozzo.Field(&r.TemplateID, ozzo.Required),
	)
}

// UpdateProjectRequest is the body of PATCH /api/projects/{id}; absent fields are left alone
type UpdateProjectRequest struct {
	Name     *string           `json:"name"`
	Language *string           `json:"language"`
	Data     *gift.ProjectData `json:"data"`
}

// ListProjects returns the whole collection
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.store.Projects())
}

// CreateProject creates a project and makes it current
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, &domain.ValidationError{Messages: []string{err.Error()}})
		return
	}

	project := h.store.CreateProject(r.Context(), req.TemplateID, req.Name)
	httputil.RespondJSON(w, http.StatusCreated, project)
}

// GetProject returns one project
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	project, ok := h.store.Project(id)
	if !ok {
		handleError(w, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// UpdateProject patches name, language and data.
// PATCH /api/projects/{id}?save=now
//
// The patch is applied to the live value of the project at commit time, so
// concurrent edits are not lost and a concurrent switch of the current project
// cannot redirect it.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req UpdateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Data != nil {
		if err := validation.ValidateProjectData(*req.Data); err != nil {
			handleError(w, err)
			return
		}
	}

	apply := func(p gift.Project) gift.Project {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Language != nil {
			p.Language = *req.Language
		}
		if req.Data != nil {
			p.Data = req.Data.Clone()
		}
		return p
	}

	updated, ok := h.store.EditProject(r.Context(), id, apply, r.URL.Query().Get("save") == "now")
	if !ok {
		handleError(w, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)})
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

// DeleteProject removes a project with its media
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	h.store.DeleteProject(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// ExportProject downloads a project as indented JSON
// GET /api/projects/{id}/export
func (h *ProjectHandler) ExportProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	project, ok := h.store.Project(id)
	if !ok {
		handleError(w, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)})
		return
	}

	body, err := h.store.ExportProject(project)
	if err != nil {
		h.logger.Error("project export failed", "project_id", id, "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondAttachment(w, "application/json", exportFilename(project), []byte(body))
}

// exportFilename keeps only characters that are safe inside a header value
func exportFilename(p gift.Project) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, p.Name)
	if name == "" {
		name = p.ID
	}
	return name + ".json"
}
