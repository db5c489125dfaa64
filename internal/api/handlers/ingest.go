package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/healthdash/backend/internal/ingest"
	"github.com/healthdash/backend/pkg/logger"
)

// IngestRunner starts one ingestion run
type IngestRunner interface {
	Run(ctx context.Context) (*ingest.Report, error)
	LastReport() *ingest.Report
}

// IngestHandler exposes manual ingestion runs
type IngestHandler struct {
	runner IngestRunner
	logger *logger.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(runner IngestRunner, log *logger.Logger) *IngestHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &IngestHandler{runner: runner, logger: log.Component("api.ingest")}
}

// Run performs one ingestion run and returns its report
// POST /api/ingest
func (h *IngestHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Run(r.Context())
	switch {
	case errors.Is(err, ingest.ErrRunInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Warn("Ingestion run aborted")
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Last returns the report of the latest run
// GET /api/ingest
func (h *IngestHandler) Last(w http.ResponseWriter, r *http.Request) {
	report := h.runner.LastReport()
	if report == nil {
		respondError(w, http.StatusNotFound, "No ingestion run yet")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
