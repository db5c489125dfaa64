package scheduler

import (
	"context"
	"time"
)

// Job is a unit of work the scheduler can fire on a cron expression
// ⭐ SSOT: scheduled work implements this interface
type Job interface {
	Name() string
	Run(ctx context.Context) error

	// Schedule is a six-field cron expression (seconds first) or a
	// descriptor such as "@daily" or "@every 30m"
	Schedule() string
}

// JobResult describes one finished execution, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

const historySize = 100

// runLog keeps the most recent results of a job in a fixed ring
type runLog struct {
	buf  [historySize]JobResult
	next int
	n    int
}

func (r *runLog) add(res JobResult) {
	r.buf[r.next] = res
	r.next = (r.next + 1) % historySize
	if r.n < historySize {
		r.n++
	}
}

// recent returns up to limit results, newest first
func (r *runLog) recent(limit int) []JobResult {
	if limit <= 0 || limit > r.n {
		limit = r.n
	}
	out := make([]JobResult, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, r.buf[(r.next-i+historySize)%historySize])
	}
	return out
}

func (r *runLog) fill(st *JobStats) {
	for _, res := range r.recent(0) {
		st.TotalRuns++
		if res.Success {
			st.SuccessCount++
			if st.LastSuccess == nil {
				t := res.StartTime
				st.LastSuccess = &t
			}
		} else {
			st.FailureCount++
			if st.LastFailure == nil {
				t := res.StartTime
				st.LastFailure = &t
			}
		}
	}
	if st.TotalRuns > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.TotalRuns)
		last := r.buf[(r.next-1+historySize)%historySize].StartTime
		st.LastRun = &last
	}
}
