package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/healthdash/backend/internal/api"
	"github.com/healthdash/backend/internal/api/handlers"
	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/internal/external/cdc"
	"github.com/healthdash/backend/internal/external/ollama"
	"github.com/healthdash/backend/internal/external/render"
	"github.com/healthdash/backend/internal/external/worldometers"
	"github.com/healthdash/backend/internal/freshness"
	"github.com/healthdash/backend/internal/heatmap"
	"github.com/healthdash/backend/internal/ingest"
	"github.com/healthdash/backend/internal/reference"
	"github.com/healthdash/backend/internal/store"
	"github.com/healthdash/backend/pkg/config"
	"github.com/healthdash/backend/pkg/database"
	"github.com/healthdash/backend/pkg/httputil"
	"github.com/healthdash/backend/pkg/logger"
	"github.com/healthdash/backend/pkg/redis"
)

// app holds every wired component. Commands build one and close it on exit.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	store        *store.Store
	renderer     *heatmap.Renderer
	reference    ingest.Config
	orchestrator *ingest.Orchestrator
	ollama       *ollama.Client
	metrics      *handlers.MetricsHandler
}

// newApp loads configuration and wires the pipeline
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if referenceFile != "" {
		cfg.ReferenceFile = referenceFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Reference table
	table, err := reference.LoadOrDefault(cfg.ReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("load reference table: %w", err)
	}
	refCfg, err := ingest.NewConfig(table)
	if err != nil {
		return nil, fmt.Errorf("reference table: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Redis is optional; failures fall back to the disabled client
	rdb := redis.Disabled()
	if cfg.Redis.Enabled {
		if c, err := redis.Connect(ctx, cfg.Redis); err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else {
			rdb = c
		}
	}
	limiter := redis.NewRateLimiter(rdb, "healthdash")

	// 6. HTTP clients, one per upstream so pacing is independent
	cdcHTTP := httputil.New(cfg, log).
		WithRetry(cfg.HTTP.MaxRetries, cfg.HTTP.RetryDelay).
		WithRateLimiter(limiter, redis.CDCRateLimit)
	wmHTTP := httputil.New(cfg, log).
		WithRetry(cfg.HTTP.MaxRetries, cfg.HTTP.RetryDelay).
		WithRateLimiter(limiter, redis.WorldometersRateLimit)
	ollamaHTTP := httputil.NewWithTimeout(cfg, log, 10*time.Minute).DisableRetry().Unpaced()

	// 7. Metric store
	st := store.New(db, log)

	// 8. Extractors
	cdcClient := cdc.NewClient(cdcHTTP, render.New(cfg.Sources, cdcHTTP, log), cfg.Sources, log)
	// the Worldometers table is served as static HTML
	wmClient := worldometers.NewClient(render.NewDirectRenderer(wmHTTP, 0, log), cfg.Sources.WorldometersURL, log)

	// 9. Freshness probes: ETag for CDC, section hash for Worldometers
	sources := ingest.Sources{
		Covid: ingest.Source[contracts.CovidExtractor]{
			Extractor: cdcClient,
			URL:       cdcClient.CovidURL(),
			Probe:     freshness.NewETagProbe(cdcHTTP),
		},
		Worldometers: ingest.Source[contracts.CountersExtractor]{
			Extractor: wmClient,
			URL:       wmClient.URL(),
			Probe:     freshness.NewContentHashProbe(wmHTTP, worldometers.TableSelector),
		},
		RSV: ingest.Source[contracts.RSVExtractor]{
			Extractor: cdcClient,
			URL:       cdcClient.RSVURL(),
			Probe:     freshness.NewETagProbe(cdcHTTP),
		},
	}

	// 10. Renderer and orchestrator
	renderer := heatmap.NewRenderer(st, cfg.Heatmap.OutputDir, log)
	orch := ingest.NewOrchestrator(refCfg, st, freshness.NewDetector(st, log), renderer, sources, log)

	metrics := handlers.NewMetricsHandler(st, redis.NewCache(rdb, "healthdash"), log)
	orch.OnComplete(func(ctx context.Context, _ *ingest.Report) {
		metrics.Invalidate(ctx)
	})

	log.WithFields(map[string]interface{}{
		"database":       string(db.Dialect),
		"redis":          rdb.Enabled(),
		"heatmap_dir":    renderer.OutputDir(),
		"reference_hash": refCfg.ReferenceHash,
	}).Info("Pipeline initialized")

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        rdb,
		store:        st,
		renderer:     renderer,
		reference:    refCfg,
		orchestrator: orch,
		ollama:       ollama.NewClient(ollamaHTTP, cfg.Ollama, log),
		metrics:      metrics,
	}, nil
}

// Close releases the database and Redis connections
func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
}

// router builds the dashboard API
func (a *app) router() *api.Server {
	router := api.NewRouter(api.Handlers{
		Health:   handlers.NewHealthHandler(a.db, "healthdash-api"),
		Metrics:  a.metrics,
		Heatmaps: handlers.NewHeatmapHandler(a.renderer.OutputDir(), a.log),
		Ingest:   handlers.NewIngestHandler(a.orchestrator, a.log),
		Chat:     handlers.NewChatHandler(a.ollama, a.log),
	}, a.log)

	return api.New(a.cfg, a.log, router)
}

// serve runs the API server until ctx is cancelled
func (a *app) serve(ctx context.Context, port string) error {
	if port != "" {
		a.cfg.Port = port
	}

	// the dashboard reads tables that may not exist before the first run
	if err := a.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	server := a.router()
	if err := server.Listen(); err != nil {
		return err
	}

	fmt.Printf("\n✅ Server running on %s\n", server.Addr())
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/metrics/{kind}/summary|heat|years|current")
	fmt.Println("  GET  /api/heatmaps")
	fmt.Println("  GET  /heatmaps/{file}")
	fmt.Println("  POST /api/ingest")
	fmt.Println("  GET  /ws/chat")
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
