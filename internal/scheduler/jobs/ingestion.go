package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthdash/backend/internal/ingest"
	"github.com/healthdash/backend/internal/scheduler"
	"github.com/healthdash/backend/pkg/logger"
)

// Runner starts one ingestion run
type Runner interface {
	Run(ctx context.Context) (*ingest.Report, error)
}

// IngestionJob scrapes every source and re-renders the heatmaps
// ⭐ SSOT: the ingestion schedule lives in this job
type IngestionJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewIngestionJob creates a new ingestion job running on schedule
func NewIngestionJob(runner Runner, schedule string, log *logger.Logger) *IngestionJob {
	if log == nil {
		log = logger.Nop()
	}
	return &IngestionJob{
		runner:   runner,
		schedule: schedule,
		logger:   log.Component("job.ingestion"),
	}
}

// Name returns the job name
func (j *IngestionJob) Name() string {
	return "ingestion"
}

// Schedule returns the cron schedule
func (j *IngestionJob) Schedule() string {
	return j.schedule
}

// Run executes one ingestion run. Failed stages make the job fail so the
// scheduler retries; sources that were stored are skipped on the retry by
// their freshness tokens.
func (j *IngestionJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx)
	if errors.Is(err, ingest.ErrRunInProgress) {
		j.logger.Warn("Previous ingestion still running, skipping")
		return nil
	}
	if err != nil {
		return &scheduler.Permanent{Err: err}
	}

	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d ingestion stage(s) failed", n)
	}

	j.logger.WithFields(map[string]interface{}{
		"records":  report.Records(),
		"heatmaps": len(report.Heatmaps),
	}).Info("Scheduled ingestion completed")

	return nil
}
