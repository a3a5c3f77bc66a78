package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"giftstudio/internal/config"
	"giftstudio/internal/domain"
	"giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/services"
	"giftstudio/internal/httputil"
)

// MediaHandler handles media uploads, previews and cleanup
type MediaHandler struct {
	store    services.ProjectStore
	uploader services.MediaUploader
	media    services.MediaManager
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store services.ProjectStore, uploader services.MediaUploader, media services.MediaManager, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		store:    store,
		uploader: uploader,
		media:    media,
		logger:   logger,
	}
}

// PreviewResponse is the body of the preview endpoint
type PreviewResponse struct {
	URL string `json:"url"`
}

// Upload stores a multipart "file" and returns the media reference to insert
// into the project's data
// POST /api/projects/{id}/media/{kind}
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	projectID, kind, err := h.target(r)
	if err != nil {
		handleError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "missing upload file")
		return
	}
	defer file.Close()

	mediaID, err := h.uploader.Upload(r.Context(), projectID, kind, header.Filename, file, header.Size)
	if err != nil {
		h.logger.Error("media upload failed", "project_id", projectID, "kind", kind, "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, gift.MediaRef{
		ID:       mediaID,
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	})
}

// Preview returns a short-lived URL for a media object
// GET /api/projects/{id}/media/{kind}/{mediaId}/preview
func (h *MediaHandler) Preview(w http.ResponseWriter, r *http.Request) {
	projectID, kind, err := h.target(r)
	if err != nil {
		handleError(w, err)
		return
	}

	url, err := h.uploader.PreviewURL(r.Context(), projectID, kind, r.PathValue("mediaId"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, PreviewResponse{URL: url})
}

// DeleteVideos removes every video blob of a project
// DELETE /api/projects/{id}/media/videos
func (h *MediaHandler) DeleteVideos(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}
	if _, ok := h.store.Project(projectID); !ok {
		handleError(w, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", projectID)})
		return
	}

	if err := h.media.DeleteProjectVideos(r.Context(), projectID); err != nil {
		h.logger.Error("failed to delete project videos", "project_id", projectID, "error", err)
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the project and media kind of a media route
func (h *MediaHandler) target(r *http.Request) (string, services.MediaKind, error) {
	projectID, err := projectIDFromPath(r)
	if err != nil {
		return "", "", err
	}
	kind, ok := services.ParseMediaKind(r.PathValue("kind"))
	if !ok {
		return "", "", &domain.ValidationError{Messages: []string{fmt.Sprintf("unknown media kind %q", r.PathValue("kind"))}}
	}
	if _, ok := h.store.Project(projectID); !ok {
		return "", "", &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", projectID)}
	}
	return projectID, kind, nil
}
