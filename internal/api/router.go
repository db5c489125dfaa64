package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/healthdash/backend/internal/api/handlers"
	"github.com/healthdash/backend/pkg/logger"
)

// Handlers groups every endpoint handler. Nil handlers leave their routes
// unregistered.
type Handlers struct {
	Health   *handlers.HealthHandler
	Metrics  *handlers.MetricsHandler
	Heatmaps *handlers.HeatmapHandler
	Ingest   *handlers.IngestHandler
	Chat     *handlers.ChatHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: route registration happens here only
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("api")

	r := mux.NewRouter()

	if h.Health == nil {
		h.Health = handlers.NewHealthHandler(nil, "healthdash-api")
	}
	r.HandleFunc("/health", h.Health.Check).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	if h.Metrics != nil {
		api.HandleFunc("/metrics/{kind}/summary", h.Metrics.GetSummary).Methods("GET")
		api.HandleFunc("/metrics/{kind}/heat", h.Metrics.GetHeat).Methods("GET")
		api.HandleFunc("/metrics/{kind}/years", h.Metrics.GetYears).Methods("GET")
		api.HandleFunc("/metrics/{kind}/current", h.Metrics.GetCurrent).Methods("GET")
	}

	if h.Heatmaps != nil {
		api.HandleFunc("/heatmaps", h.Heatmaps.List).Methods("GET")
		r.HandleFunc("/heatmaps/{file}", h.Heatmaps.Serve).Methods("GET")
	}

	if h.Ingest != nil {
		api.HandleFunc("/ingest", h.Ingest.Run).Methods("POST")
		api.HandleFunc("/ingest", h.Ingest.Last).Methods("GET")
	}

	if h.Chat != nil {
		r.HandleFunc("/ws/chat", h.Chat.Serve).Methods("GET")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// websocket upgrades need the raw writer
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
