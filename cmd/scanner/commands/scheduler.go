package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/gapscan/internal/output"
	"github.com/wonny/gapscan/internal/scheduler"
	"github.com/wonny/gapscan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/scanner scheduler start
  go run ./cmd/scanner scheduler list
  go run ./cmd/scanner scheduler run output_rotation`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (거래소 시간):
- scan_session: 평일 04:00 (장 마감까지 스캔 루프)
- output_rotation: 평일 20:30 (당일 CSV 아카이브)

장중에 시작하면 scan_session 을 즉시 1회 실행합니다 (--catch-up).
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행 (완료까지 대기)",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

var (
	schedulerWithAPI bool
	schedulerCatchUp bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	// Flags
	schedulerStartCmd.Flags().BoolVar(&schedulerWithAPI, "api", true, "상태 API / websocket 서버 함께 실행")
	schedulerStartCmd.Flags().BoolVar(&schedulerCatchUp, "catch-up", true, "장중 시작 시 scan_session 즉시 실행")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	PrintHeader("Gap Scanner - Scheduler", fmt.Sprintf("Run ID    : %s", a.engine.RunID()))
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	if schedulerWithAPI {
		server := a.router(sched)
		go func() {
			if err := server.Start(); err != nil {
				a.log.WithError(err).Error("API server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		fmt.Printf("\n✅ API on http://localhost:%s (ws: /ws)\n", a.cfg.Port)
	}

	now := a.clock.Now()
	if schedulerCatchUp && !now.Before(a.clock.PremarketStart(now)) && !a.clock.SessionOver(now) {
		a.log.Info("Session already open, starting scan_session now")
		if err := sched.RunJob(jobs.ScanSessionJobName); err != nil {
			return fmt.Errorf("catch-up run: %w", err)
		}
	}

	fmt.Println("\nPress Ctrl+C to stop")
	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newLocalApp()
	if err != nil {
		return err
	}

	// 로컬 목록 조회용: scan_session 은 실행하지 않으므로 runner 없이 등록
	sched := scheduler.New(a.clock.Location(), a.log)
	if err := registerJobs(sched, a, nil); err != nil {
		return err
	}

	fmt.Println("Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		next := "-"
		if stat.NextRun != nil {
			next = stat.NextRun.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("  - %-16s %-16s next: %s\n", name, stat.Schedule, next)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	ctx, stop := signalContext()
	defer stop()

	var (
		a   *app
		err error
	)
	if jobName == jobs.ScanSessionJobName {
		a, err = newApp(ctx)
	} else {
		a, err = newLocalApp()
	}
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	go func() {
		<-ctx.Done()
		sched.Stop()
	}()

	result, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}
	fmt.Printf("✅ Job %s completed in %s\n", jobName, result.Duration)
	return nil
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.clock.Location(), a.log).WithRetry(2, 30*time.Second)

	var runner jobs.Runner
	if a.engine != nil {
		runner = a.engine
	}
	if err := registerJobs(sched, a, runner); err != nil {
		return nil, err
	}
	return sched, nil
}

// registerJobs adds the scanner jobs; scan_session only when runner is set
func registerJobs(sched *scheduler.Scheduler, a *app, runner jobs.Runner) error {
	if runner != nil {
		if err := sched.AddJob(jobs.NewScanSessionJob(runner, "", a.log)); err != nil {
			return fmt.Errorf("add scan_session: %w", err)
		}
	}

	rotation := jobs.NewOutputRotationJob(a.cfg.OutputDir,
		[]string{output.WatchlistFile, output.PickFile}, a.clock.Location(), a.log)
	if err := sched.AddJob(rotation); err != nil {
		return fmt.Errorf("add output_rotation: %w", err)
	}
	return nil
}
