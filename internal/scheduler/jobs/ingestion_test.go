package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/healthdash/backend/internal/ingest"
	"github.com/healthdash/backend/internal/scheduler"
)

type fakeRunner struct {
	report *ingest.Report
	err    error
}

func (r *fakeRunner) Run(context.Context) (*ingest.Report, error) {
	return r.report, r.err
}

func TestIngestionJob(t *testing.T) {
	ok := &ingest.Report{Stages: []ingest.StageReport{{Name: ingest.StageRSV, Status: ingest.StatusOK, Records: 3}}}
	failed := &ingest.Report{Stages: []ingest.StageReport{{Name: ingest.StageRSV, Status: ingest.StatusFailed}}}

	tests := []struct {
		name      string
		runner    *fakeRunner
		wantErr   bool
		permanent bool
	}{
		{name: "success", runner: &fakeRunner{report: ok}},
		{name: "already running", runner: &fakeRunner{err: ingest.ErrRunInProgress}},
		{name: "failed stage", runner: &fakeRunner{report: failed}, wantErr: true},
		{name: "cancelled", runner: &fakeRunner{report: ok, err: context.Canceled}, wantErr: true, permanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewIngestionJob(tt.runner, "0 0 */6 * * *", nil)
			assert.Equal(t, "ingestion", job.Name())
			assert.Equal(t, "0 0 */6 * * *", job.Schedule())

			err := job.Run(context.Background())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)

			var perm *scheduler.Permanent
			assert.Equal(t, tt.permanent, errors.As(err, &perm))
		})
	}
}
