package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/internal/freshness"
	"github.com/healthdash/backend/internal/heatmap"
	"github.com/healthdash/backend/pkg/logger"
)

// ErrRunInProgress is returned when Run is called while another run is active
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Source binds an extractor to the URL and probe used for its freshness check
type Source[E any] struct {
	Extractor E
	URL       string
	Probe     freshness.Probe
}

// Sources groups the three upstreams. A nil extractor skips its stage.
type Sources struct {
	Covid        Source[contracts.CovidExtractor]
	Worldometers Source[contracts.CountersExtractor]
	RSV          Source[contracts.RSVExtractor]
}

// Orchestrator runs the scrape, store and render stages in a fixed order
// ⭐ SSOT: ingestion runs are started through this type only
type Orchestrator struct {
	cfg      Config
	store    contracts.MetricRepository
	detector *freshness.Detector
	renderer *heatmap.Renderer
	sources  Sources
	logger   *logger.Logger

	running atomic.Bool

	mu    sync.Mutex
	hooks []func(ctx context.Context, report *Report)
	last  *Report
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	cfg Config,
	store contracts.MetricRepository,
	detector *freshness.Detector,
	renderer *heatmap.Renderer,
	sources Sources,
	log *logger.Logger,
) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		cfg:      cfg.clone(),
		store:    store,
		detector: detector,
		renderer: renderer,
		sources:  sources,
		logger:   log.Component("ingest"),
	}
}

// OnComplete registers fn to be called after every finished run
func (o *Orchestrator) OnComplete(fn func(ctx context.Context, report *Report)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hooks = append(o.hooks, fn)
}

// LastReport returns the report of the most recent run, or nil
func (o *Orchestrator) LastReport() *Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Run executes every stage top to bottom. Stage failures are logged and
// recorded in the report; the only error returned is context cancellation
// or ErrRunInProgress.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	report := &Report{
		StartedAt:     time.Now(),
		ReferenceHash: o.cfg.ReferenceHash,
	}

	o.logger.WithField("reference_hash", o.cfg.ReferenceHash).Info("Ingestion run started")

	stages := []struct {
		name string
		fn   func(context.Context, *StageReport)
	}{
		{StageSchema, o.ensureSchema},
		{StageCovid, o.ingestCovid},
		{StageWorldometers, o.ingestWorldometers},
		{StageRSV, o.ingestRSV},
		{StageCentroids, o.upsertCentroids},
		{StageHeatmaps, func(ctx context.Context, sr *StageReport) { o.renderHeatmaps(ctx, sr, report) }},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			o.logger.WithError(err).Warn("Ingestion run cancelled")
			return report, err
		}

		sr := StageReport{Name: stage.name, Status: StatusOK}
		start := time.Now()
		stage.fn(ctx, &sr)
		sr.Duration = time.Since(start)
		report.Stages = append(report.Stages, sr)

		log := o.logger.WithFields(map[string]interface{}{
			"stage":    sr.Name,
			"status":   string(sr.Status),
			"records":  sr.Records,
			"duration": sr.Duration.String(),
		})
		if sr.Status == StatusFailed {
			log.WithField("error", sr.Error).Error("Stage failed")
		} else {
			log.Info("Stage completed")
		}
	}

	report.FinishedAt = time.Now()

	o.logger.WithFields(map[string]interface{}{
		"records":  report.Records(),
		"failed":   report.Failed(),
		"heatmaps": len(report.Heatmaps),
		"duration": report.Duration().String(),
	}).Info("Ingestion run completed")

	o.mu.Lock()
	o.last = report
	hooks := append([]func(context.Context, *Report){}, o.hooks...)
	o.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, report)
	}

	return report, nil
}

func (o *Orchestrator) ensureSchema(ctx context.Context, sr *StageReport) {
	if err := o.store.EnsureSchema(ctx); err != nil {
		fail(sr, err)
	}
}

// check runs the freshness check for a stage. It returns false when the
// stage should be skipped.
func (o *Orchestrator) check(ctx context.Context, url string, probe freshness.Probe, sr *StageReport) (freshness.Result, bool) {
	if probe == nil {
		sr.Freshness = "unchecked"
		return freshness.Result{State: freshness.Changed}, true
	}

	res := o.detector.Check(ctx, url, probe)
	sr.Freshness = res.State.String()
	if !res.Proceed() {
		sr.Status = StatusSkipped
		return res, false
	}
	return res, true
}

// commit stores the freshness token after a successful write. A failed
// commit only costs a redundant scrape next time.
func (o *Orchestrator) commit(ctx context.Context, url string, res freshness.Result) {
	if err := o.detector.Commit(ctx, url, res.Token); err != nil {
		o.logger.WithError(err).WithField("url", url).Warn("Failed to commit freshness token")
	}
}

func (o *Orchestrator) ingestCovid(ctx context.Context, sr *StageReport) {
	src := o.sources.Covid
	if src.Extractor == nil {
		skip(sr, "not configured")
		return
	}

	res, proceed := o.check(ctx, src.URL, src.Probe, sr)
	if !proceed {
		return
	}

	records, err := src.Extractor.ExtractPositivity(ctx)
	if err != nil {
		fail(sr, err)
		return
	}
	if len(records) == 0 {
		// nothing was read; leave the token so the next run retries
		return
	}

	if err := o.store.Append(ctx, contracts.KindCOVIDPositivity, records); err != nil {
		fail(sr, err)
		return
	}
	sr.Records = len(records)

	o.commit(ctx, src.URL, res)
}

func (o *Orchestrator) ingestWorldometers(ctx context.Context, sr *StageReport) {
	src := o.sources.Worldometers
	if src.Extractor == nil {
		skip(sr, "not configured")
		return
	}

	res, proceed := o.check(ctx, src.URL, src.Probe, sr)
	if !proceed {
		return
	}

	counters, err := src.Extractor.ExtractCounters(ctx)
	if err != nil {
		fail(sr, err)
		return
	}
	written, err := o.store.ApplyCounters(ctx, counters)
	if err != nil {
		fail(sr, err)
		return
	}
	sr.Records = written
	if written == 0 {
		return
	}

	o.commit(ctx, src.URL, res)
}

func (o *Orchestrator) ingestRSV(ctx context.Context, sr *StageReport) {
	src := o.sources.RSV
	if src.Extractor == nil {
		skip(sr, "not configured")
		return
	}

	res, proceed := o.check(ctx, src.URL, src.Probe, sr)
	if !proceed {
		return
	}

	records, err := src.Extractor.ExtractRSV(ctx)
	if err != nil {
		fail(sr, err)
		return
	}
	if len(records) == 0 {
		return
	}

	if err := o.store.Append(ctx, contracts.KindRSVRate, records); err != nil {
		fail(sr, err)
		return
	}
	sr.Records = len(records)

	o.commit(ctx, src.URL, res)
}

func (o *Orchestrator) upsertCentroids(ctx context.Context, sr *StageReport) {
	if err := o.store.UpsertCentroids(ctx, o.cfg.Centroids); err != nil {
		fail(sr, err)
		return
	}
	sr.Records = len(o.cfg.Centroids)
}

func (o *Orchestrator) renderHeatmaps(ctx context.Context, sr *StageReport, report *Report) {
	if o.renderer == nil {
		skip(sr, "not configured")
		return
	}

	outputs, err := o.renderer.RenderAll(ctx, o.cfg.Diseases)
	report.Heatmaps = outputs
	sr.Records = len(outputs)
	if err != nil {
		fail(sr, err)
	}
}

func fail(sr *StageReport, err error) {
	sr.Status = StatusFailed
	sr.Error = err.Error()
}

func skip(sr *StageReport, reason string) {
	sr.Status = StatusSkipped
	sr.Error = reason
}

// String renders a one-line summary for CLI output
func (sr StageReport) String() string {
	s := fmt.Sprintf("%-16s %-8s records=%d", sr.Name, sr.Status, sr.Records)
	if sr.Freshness != "" {
		s += " freshness=" + sr.Freshness
	}
	if sr.Error != "" {
		s += " error=" + sr.Error
	}
	return s
}
