package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/gapscan/pkg/logger"
)

// OutputRotationJobName is the registered name of the archive job
const OutputRotationJobName = "output_rotation"

// OutputRotationJob moves the day's CSV files into archive/<date>/
type OutputRotationJob struct {
	dir    string
	files  []string
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger
}

// NewOutputRotationJob rotates files (names relative to dir)
func NewOutputRotationJob(dir string, files []string, loc *time.Location, log *logger.Logger) *OutputRotationJob {
	return &OutputRotationJob{
		dir:    dir,
		files:  files,
		loc:    loc,
		now:    time.Now,
		logger: log,
	}
}

// Name returns the job name
func (j *OutputRotationJob) Name() string {
	return OutputRotationJobName
}

// Schedule returns the cron schedule (weekdays 20:30, after the close)
func (j *OutputRotationJob) Schedule() string {
	return "0 30 20 * * 1-5"
}

// Run executes the rotation
func (j *OutputRotationJob) Run(ctx context.Context) error {
	date := j.now().In(j.loc).Format("2006-01-02")
	archive := filepath.Join(j.dir, "archive", date)

	moved := 0
	for _, name := range j.files {
		if err := ctx.Err(); err != nil {
			return err
		}

		src := filepath.Join(j.dir, name)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := os.MkdirAll(archive, 0o755); err != nil {
			return fmt.Errorf("failed to create archive dir: %w", err)
		}
		if err := os.Rename(src, filepath.Join(archive, name)); err != nil {
			return fmt.Errorf("failed to rotate %s: %w", name, err)
		}
		moved++
	}

	j.logger.WithFields(map[string]interface{}{
		"date":    date,
		"archive": archive,
		"moved":   moved,
	}).Info("Output rotation completed")

	return nil
}
