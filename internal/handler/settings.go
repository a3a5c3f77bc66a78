package handler

import (
	"log/slog"
	"net/http"

	"giftstudio/internal/domain/services"
	"giftstudio/internal/httputil"
)

// SettingsHandler reads and updates editor settings
type SettingsHandler struct {
	settings services.SettingsStore
	logger   *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings services.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger,
	}
}

// SettingsResponse is the JSON view of the editor settings
type SettingsResponse struct {
	AutosaveEnabled bool `json:"autosaveEnabled"`
}

// UpdateSettingsRequest is the body of PATCH /api/settings
type UpdateSettingsRequest struct {
	AutosaveEnabled *bool `json:"autosaveEnabled"`
}

// GetSettings returns the editor settings
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, SettingsResponse{AutosaveEnabled: h.settings.AutosaveEnabled()})
}

// UpdateSettings changes the editor settings
// PATCH /api/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.AutosaveEnabled != nil {
		if err := h.settings.SetAutosaveEnabled(*req.AutosaveEnabled); err != nil {
			// The new value is live for this process even if the file write failed.
			h.logger.Error("failed to persist settings", "error", err)
		}
	}

	httputil.RespondJSON(w, http.StatusOK, SettingsResponse{AutosaveEnabled: h.settings.AutosaveEnabled()})
}
