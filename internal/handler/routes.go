package handler

import "net/http"

// Handlers groups every handler the API mounts. Media is nil when no
// object store is configured; its routes are then not registered.
type Handlers struct {
	Projects *ProjectHandler
	Current  *CurrentHandler
	Import   *ImportHandler
	Media    *MediaHandler
	Settings *SettingsHandler
}

// RegisterRoutes mounts the API on mux (Go 1.22+ patterns)
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Project routes
	mux.HandleFunc("GET /api/projects", h.Projects.ListProjects)
	mux.HandleFunc("POST /api/projects", h.Projects.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.Projects.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", h.Projects.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.Projects.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/export", h.Projects.ExportProject)

	// Import
	mux.HandleFunc("POST /api/import", h.Import.Import)

	// Current project
	mux.HandleFunc("GET /api/current", h.Current.GetCurrent)
	mux.HandleFunc("PUT /api/current", h.Current.SetCurrent)
	mux.HandleFunc("POST /api/current/save", h.Current.SaveCurrent)
	mux.HandleFunc("GET /api/current/revision", h.Current.GetRevision)

	// Media
	if h.Media != nil {
		mux.HandleFunc("POST /api/projects/{id}/media/{kind}", h.Media.Upload)
		mux.HandleFunc("GET /api/projects/{id}/media/{kind}/{mediaId}/preview", h.Media.Preview)
		mux.HandleFunc("DELETE /api/projects/{id}/media/videos", h.Media.DeleteVideos)
	}

	// Settings
	mux.HandleFunc("GET /api/settings", h.Settings.GetSettings)
	mux.HandleFunc("PATCH /api/settings", h.Settings.UpdateSettings)
}
