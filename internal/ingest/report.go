package ingest

import (
	"time"

	"github.com/healthdash/backend/internal/heatmap"
)

// Stage names in run order
const (
	StageSchema       = "schema"
	StageCovid        = "covid_positivity"
	StageWorldometers = "worldometers"
	StageRSV          = "rsv"
	StageCentroids    = "centroids"
	StageHeatmaps     = "heatmaps"
)

// StageStatus is the outcome of one stage
type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusSkipped StageStatus = "skipped"
	StatusFailed  StageStatus = "failed"
)

// StageReport describes one stage of a run
type StageReport struct {
	Name      string        `json:"name"`
	Status    StageStatus   `json:"status"`
	Freshness string        `json:"freshness,omitempty"`
	Records   int           `json:"records"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Report summarises one ingestion run
type Report struct {
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	ReferenceHash string           `json:"reference_hash"`
	Stages        []StageReport    `json:"stages"`
	Heatmaps      []heatmap.Output `json:"heatmaps"`
}

// Stage returns the report of the named stage
func (r *Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// Failed returns the number of failed stages
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Records returns the number of metric rows written by the source stages
func (r *Report) Records() int {
	n := 0
	for _, s := range r.Stages {
		switch s.Name {
		case StageCovid, StageWorldometers, StageRSV:
			n += s.Records
		}
	}
	return n
}

// Duration returns the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
