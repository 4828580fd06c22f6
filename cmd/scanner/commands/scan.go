package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "스캔 루프 실행 (장 마감까지)",
	Long: `현재 시각부터 스캔 루프를 실행합니다.

이 명령어는:
- 세션 단계(PREMARKET/OPEN_SELECTION/REGULAR)에 맞는 주기로 tick 실행
- 매 tick 상위 후보를 watchlist.csv 에 기록
- 09:30-09:35 선정 윈도우에서 최종 픽 1개를 today_pick.csv 에 기록
- CLOSED 단계에서 종료

Cadence:
  ~09:00        30분
  09:00-09:15   15분
  09:15~         5분

Example:
  go run ./cmd/scanner scan
  go run ./cmd/scanner scan --api`,
	RunE: runScan,
}

var (
	scanWithAPI bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// Flags
	scanCmd.Flags().BoolVar(&scanWithAPI, "api", false, "같은 프로세스에서 상태 API / websocket 서버 실행")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("Gap Scanner - Scan Loop",
		fmt.Sprintf("Run ID    : %s", a.engine.RunID()),
		fmt.Sprintf("Strategy  : %s v%s", a.strategy.Meta.StrategyID, a.strategy.Meta.Version),
		fmt.Sprintf("Output    : %s", a.cfg.OutputDir),
	)

	if scanWithAPI {
		server := a.router(nil)
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
		fmt.Printf("✅ API on http://localhost:%s (ws: /ws)\n", a.cfg.Port)
	}

	if err := a.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scan loop: %w", err)
	}

	status := a.engine.Status()
	fmt.Println()
	if status.Pick != nil {
		fmt.Println("Final pick:")
		PrintPick(*status.Pick)
	} else {
		fmt.Printf("No final pick (selection: %s)\n", status.Selection)
	}
	return nil
}
