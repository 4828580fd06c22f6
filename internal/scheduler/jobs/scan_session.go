package jobs

import (
	"context"

	"github.com/wonny/gapscan/pkg/logger"
)

// ScanSessionJobName is the registered name of the scan loop job
const ScanSessionJobName = "scan_session"

// Runner is a blocking scan loop (the orchestrator)
type Runner interface {
	Run(ctx context.Context) error
	RunID() string
}

// ScanSessionJob runs the scan loop from premarket start until the close
type ScanSessionJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewScanSessionJob creates the job; schedule "" means weekdays 04:00
func NewScanSessionJob(runner Runner, schedule string, log *logger.Logger) *ScanSessionJob {
	if schedule == "" {
		schedule = "0 0 4 * * 1-5"
	}
	return &ScanSessionJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ScanSessionJob) Name() string {
	return ScanSessionJobName
}

// Schedule returns the cron schedule (exchange time)
func (j *ScanSessionJob) Schedule() string {
	return j.schedule
}

// Run blocks until the session closes or ctx is cancelled
func (j *ScanSessionJob) Run(ctx context.Context) error {
	j.logger.WithField("run_id", j.runner.RunID()).Info("Scan session starting")

	if err := j.runner.Run(ctx); err != nil {
		return err
	}

	j.logger.Info("Scan session finished")
	return nil
}
