package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/logger"
	"github.com/healthdash/backend/pkg/redis"
)

// MetricReader is the read side of the metric store
type MetricReader interface {
	AggregateByRegion(ctx context.Context, kind contracts.Kind) (map[string]float64, error)
	JoinWithCentroids(ctx context.Context, kind contracts.Kind, period string, exactMatch bool) ([]contracts.HeatPoint, error)
	DistinctYears(ctx context.Context, kind contracts.Kind) ([]string, error)
	LatestSnapshot(ctx context.Context, kind contracts.Kind) ([]contracts.StoredMetric, error)
}

// MetricsHandler serves stored metrics to the dashboard
// ⭐ SSOT: dashboard reads of the metric store go through this handler
type MetricsHandler struct {
	store  MetricReader
	cache  *redis.Cache
	logger *logger.Logger
}

// NewMetricsHandler creates a new metrics handler. cache may wrap a
// disabled client, in which case every request reads the store.
func NewMetricsHandler(store MetricReader, cache *redis.Cache, log *logger.Logger) *MetricsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MetricsHandler{
		store:  store,
		cache:  cache,
		logger: log.Component("api.metrics"),
	}
}

// SummaryResponse carries per-region averages for one kind
type SummaryResponse struct {
	Kind    contracts.Kind     `json:"kind"`
	Regions map[string]float64 `json:"regions"`
}

// HeatResponse carries the centroid join for one kind and period
type HeatResponse struct {
	Kind   contracts.Kind        `json:"kind"`
	Period string                `json:"period"`
	Exact  bool                  `json:"exact"`
	Points []contracts.HeatPoint `json:"points"`
}

func (h *MetricsHandler) kind(w http.ResponseWriter, r *http.Request) (contracts.Kind, bool) {
	kind, err := contracts.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return kind, true
}

// GetSummary returns the average value per region
// GET /api/metrics/{kind}/summary
func (h *MetricsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	var regions map[string]float64
	err := h.cache.GetOrSet(r.Context(), redis.SummaryKey(kind.String()), &regions, redis.TTLLong, func() (interface{}, error) {
		return h.store.AggregateByRegion(r.Context(), kind)
	})
	if err != nil {
		h.logger.WithError(err).WithField("kind", kind.String()).Error("Failed to aggregate metrics")
		respondError(w, http.StatusInternalServerError, "Failed to aggregate metrics")
		return
	}
	if regions == nil {
		regions = map[string]float64{}
	}

	respondJSON(w, http.StatusOK, SummaryResponse{Kind: kind, Regions: regions})
}

// GetHeat returns heat points joined with state centroids
// GET /api/metrics/{kind}/heat?period=2023&exact=false
func (h *MetricsHandler) GetHeat(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		respondError(w, http.StatusBadRequest, "period is required")
		return
	}

	exact := true
	if v := r.URL.Query().Get("exact"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "exact must be a boolean")
			return
		}
		exact = b
	}

	points, err := h.store.JoinWithCentroids(r.Context(), kind, period, exact)
	if err != nil {
		h.logger.WithError(err).WithField("kind", kind.String()).Error("Failed to join centroids")
		respondError(w, http.StatusInternalServerError, "Failed to load heat points")
		return
	}
	if points == nil {
		points = []contracts.HeatPoint{}
	}

	respondJSON(w, http.StatusOK, HeatResponse{Kind: kind, Period: period, Exact: exact, Points: points})
}

// GetYears returns the distinct years stored for a kind
// GET /api/metrics/{kind}/years
func (h *MetricsHandler) GetYears(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	var years []string
	err := h.cache.GetOrSet(r.Context(), redis.YearsKey(kind.String()), &years, redis.TTLLong, func() (interface{}, error) {
		return h.store.DistinctYears(r.Context(), kind)
	})
	if err != nil {
		h.logger.WithError(err).WithField("kind", kind.String()).Error("Failed to list years")
		respondError(w, http.StatusInternalServerError, "Failed to list years")
		return
	}
	if years == nil {
		years = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kind":  kind,
		"years": years,
	})
}

// GetCurrent returns the latest row per region
// GET /api/metrics/{kind}/current
func (h *MetricsHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	rows, err := h.store.LatestSnapshot(r.Context(), kind)
	if err != nil {
		h.logger.WithError(err).WithField("kind", kind.String()).Error("Failed to load snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to load current values")
		return
	}
	if rows == nil {
		rows = []contracts.StoredMetric{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kind":    kind,
		"metrics": rows,
	})
}

// Invalidate drops every cached summary. It is registered as an ingestion
// completion hook.
func (h *MetricsHandler) Invalidate(ctx context.Context) {
	keys := make([]string, 0, 2*len(contracts.AllKinds))
	for _, k := range contracts.AllKinds {
		keys = append(keys, redis.SummaryKey(k.String()), redis.YearsKey(k.String()))
	}
	if err := h.cache.Delete(ctx, keys...); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate metric cache")
	}
}
