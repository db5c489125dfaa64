package handlers

import (
	"context"
	"net/http"

	"github.com/healthdash/backend/pkg/database"
)

// HealthChecker reports database health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	db      HealthChecker
	service string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, service string) *HealthHandler {
	return &HealthHandler{db: db, service: service}
}

// Check returns server and database health
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": h.service,
	}

	if h.db == nil {
		respondJSON(w, http.StatusOK, body)
		return
	}

	status, err := h.db.HealthCheck(r.Context())
	body["database"] = status
	if err != nil {
		body["status"] = "degraded"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	respondJSON(w, http.StatusOK, body)
}
