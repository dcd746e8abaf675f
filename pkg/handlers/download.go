package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DownloadHandler serves exported CSV files from the results directory.
type DownloadHandler struct {
	dir    string
	logger *zap.Logger
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(dir string, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{dir: dir, logger: logger}
}

// RegisterRoutes registers the download handler's routes on the given mux.
func (h *DownloadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/download/{file}", h.Download)
}

// Download handles GET /api/download/{file}. Only bare CSV filenames are
// accepted; anything resembling a path escape is rejected.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")

	if name == "" || name != filepath.Base(name) ||
		strings.Contains(name, "..") || !strings.HasSuffix(name, ".csv") {
		_ = ErrorResponse(w, http.StatusBadRequest, codeInvalidFilename, "invalid file name")
		return
	}

	path := filepath.Join(h.dir, name)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	http.ServeFile(w, r, path)
}
