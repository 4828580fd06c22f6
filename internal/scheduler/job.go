package scheduler

import (
	"context"
	"time"
)

// Job is one unit of scanner housekeeping run on a cron schedule in
// exchange time: the session-long scan loop and the evening output rotation.
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run blocks until the job is done. ctx is cancelled on scheduler Stop,
	// which must end a scan session early.
	Run(ctx context.Context) error

	// Schedule is a 6-field cron expression (seconds first),
	// e.g. "0 0 4 * * 1-5" for weekdays at premarket start
	Schedule() string
}

// JobResult is the outcome of one run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Skipped   bool          `json:"skipped,omitempty"` // previous run still active
	Error     string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per job (about five months of sessions)
const maxHistory = 100

// JobHistory is a job's bounded run log, oldest first.
// The scheduler's lock guards it.
type JobHistory struct {
	Results []JobResult
}

// Add appends a result, dropping the oldest past maxHistory
func (h *JobHistory) Add(r JobResult) {
	h.Results = append(h.Results, r)
	if over := len(h.Results) - maxHistory; over > 0 {
		h.Results = append(h.Results[:0:0], h.Results[over:]...)
	}
}

// Latest returns up to n newest results
func (h *JobHistory) Latest(n int) []JobResult {
	n = min(n, len(h.Results))
	return h.Results[len(h.Results)-n:]
}

// Failures returns every failed run
func (h *JobHistory) Failures() []JobResult {
	var failed []JobResult
	for _, r := range h.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SuccessRate is the share of successful runs (0 with no runs)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-len(h.Failures())) / float64(len(h.Results))
}

// JobStats is a job's run summary for `scheduler list` and /api/scheduler/jobs
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}

// Stats summarizes the history for job; next is the zero time when unscheduled
func (h *JobHistory) Stats(job Job, next time.Time) JobStats {
	failures := len(h.Failures())
	st := JobStats{
		JobName:      job.Name(),
		Schedule:     job.Schedule(),
		TotalRuns:    len(h.Results),
		SuccessCount: len(h.Results) - failures,
		FailureCount: failures,
		SuccessRate:  h.SuccessRate(),
	}

	for i := len(h.Results) - 1; i >= 0; i-- {
		r := h.Results[i]
		start := r.StartTime
		if st.LastRun == nil {
			st.LastRun = &start
		}
		if r.Success && st.LastSuccess == nil {
			st.LastSuccess = &start
		}
		if !r.Success && st.LastFailure == nil {
			st.LastFailure = &start
		}
	}
	if !next.IsZero() {
		st.NextRun = &next
	}
	return st
}
