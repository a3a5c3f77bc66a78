package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"giftstudio/internal/config"
	"giftstudio/internal/domain/services"
	"giftstudio/internal/httputil"
)

// ImportHandler handles project import uploads
type ImportHandler struct {
	store  services.ProjectStore
	logger *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(store services.ProjectStore, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		store:  store,
		logger: logger,
	}
}

// Import accepts an exported project either as the raw request body or as a
// multipart form field named "file". The outcome is always an ImportResult;
// a rejected import answers 422.
// POST /api/import
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := readImportBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("import data exceeds %d bytes", config.MaxImportBytes))
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.store.ImportProject(r.Context(), raw)
	if !result.Success {
		httputil.RespondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, result)
}

func readImportBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, config.MaxImportBytes)
		return io.ReadAll(r.Body)
	}

	// Multipart framing adds a little overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxImportBytes+64<<10)
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing import file: %w", err)
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, config.MaxImportBytes+1))
}
