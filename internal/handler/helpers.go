package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"giftstudio/internal/config"
	"giftstudio/internal/domain"
	"giftstudio/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, validationErr.Error(), map[string]interface{}{
			"errors": validationErr.Messages,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoCurrent):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// projectIDFromPath reads and sanity-checks the {id} path segment
func projectIDFromPath(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if id == "" {
		return "", &domain.ValidationError{Messages: []string{"project id is required"}}
	}
	if len(id) > config.MaxIDLength || strings.ContainsAny(id, "/\\") {
		return "", &domain.ValidationError{Messages: []string{"project id is malformed"}}
	}
	return id, nil
}

// HealthCheck is a simple health check endpoint
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
