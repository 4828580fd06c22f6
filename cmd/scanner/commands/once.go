package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/gapscan/internal/strategyconfig"
)

// onceCmd represents the once command
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "tick 1회 실행",
	Long: `스캔 tick 을 한 번 실행하고 단계별 결과를 출력합니다.

출력:
- 단계별 통과 수 (fetch → normalize → pool → screen → enrich → liquidity → heartbeat)
- 사유별 탈락 수
- 상위 후보 / 최종 픽 (선정 윈도우인 경우)

Example:
  go run ./cmd/scanner once
  go run ./cmd/scanner once --at 09:31`,
	RunE: runOnce,
}

var (
	onceAt string
)

func init() {
	rootCmd.AddCommand(onceCmd)

	// Flags
	onceCmd.Flags().StringVar(&onceAt, "at", "", "tick 시각 (HH:MM, 거래소 시간, 기본: 현재)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := a.clock.Now()
	if onceAt != "" {
		minutes, err := strategyconfig.ParseClock(onceAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		y, m, d := now.In(a.clock.Location()).Date()
		now = time.Date(y, m, d, minutes/60, minutes%60, 0, 0, a.clock.Location())
	}

	res, err := a.engine.Tick(ctx, now)
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}

	PrintTickResult(res)
	return nil
}
