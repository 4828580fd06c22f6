package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	fails    int
	calls    int
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(ctx context.Context) error {
	j.calls++
	if j.calls <= j.fails {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(time.UTC, logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 0 4 * * 1-5"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))

	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}), "duplicate")
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
}

func TestRunJobSync_RetriesThenSucceeds(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "flaky", schedule: "@daily", fails: 2}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJobSync("flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, job.calls)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
}

func TestRunJobSync_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "broken", schedule: "@daily", fails: 10}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJobSync("broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "transient", res.Error)
	assert.Equal(t, 3, job.calls)

	h, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	assert.Len(t, h.Failures(), 1)
	assert.Equal(t, 3, h.Latest(1)[0].Attempts)
}

func TestRunJob_Unknown(t *testing.T) {
	s := newTestScheduler()
	assert.Error(t, s.RunJob("missing"))
	_, err := s.RunJobSync("missing")
	assert.Error(t, err)
	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	assert.Empty(t, h.Latest(5))

	for i := 0; i < maxHistory+10; i++ {
		h.Add(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(3), 3)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}

func TestJobHistory_Stats(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	job := &countingJob{name: "scan_session", schedule: "0 0 4 * * 1-5"}

	h := &JobHistory{}
	h.Add(JobResult{StartTime: t0, Success: true})
	h.Add(JobResult{StartTime: t0.AddDate(0, 0, 1), Success: false})

	st := h.Stats(job, time.Time{})
	assert.Equal(t, "scan_session", st.JobName)
	assert.Equal(t, 2, st.TotalRuns)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Equal(t, 1, st.FailureCount)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, t0.AddDate(0, 0, 1), *st.LastRun)
	assert.Equal(t, t0, *st.LastSuccess)
	assert.Equal(t, t0.AddDate(0, 0, 1), *st.LastFailure)
	assert.Nil(t, st.NextRun)

	next := t0.AddDate(0, 0, 2)
	assert.Equal(t, next, *h.Stats(job, next).NextRun)
}
