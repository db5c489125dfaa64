package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/healthdash/backend/internal/heatmap"
	"github.com/healthdash/backend/pkg/logger"
)

// HeatmapHandler lists and serves rendered map files
type HeatmapHandler struct {
	dir    string
	logger *logger.Logger
}

// NewHeatmapHandler creates a handler for maps in dir
func NewHeatmapHandler(dir string, log *logger.Logger) *HeatmapHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HeatmapHandler{dir: dir, logger: log.Component("api.heatmaps")}
}

// List returns the rendered maps
// GET /api/heatmaps
func (h *HeatmapHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := heatmap.ListFiles(h.dir)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list heatmaps")
		respondError(w, http.StatusInternalServerError, "Failed to list heatmaps")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(files),
		"files": files,
	})
}

// Serve returns one rendered map
// GET /heatmaps/{file}
func (h *HeatmapHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	if !heatmap.IsHeatmapFile(name) {
		respondError(w, http.StatusNotFound, "Heatmap not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, filepath.Join(h.dir, name))
}
