package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/gapscan/internal/output"
)

// pickCmd represents the pick command
var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "최종 픽 조회",
}

var pickShowCmd = &cobra.Command{
	Use:   "show",
	Short: "날짜별 픽 파일 조회 (최종 픽 ⭐ 표시)",
	Long: `today_pick.csv 에서 해당 날짜의 행을 출력합니다.

Example:
  go run ./cmd/scanner pick show
  go run ./cmd/scanner pick show --date 2026-03-02`,
	RunE: runPickShow,
}

var (
	pickDate string
)

func init() {
	rootCmd.AddCommand(pickCmd)
	pickCmd.AddCommand(pickShowCmd)

	// Flags
	pickShowCmd.Flags().StringVar(&pickDate, "date", "", "거래일 (YYYY-MM-DD, 기본: 오늘)")
}

func runPickShow(cmd *cobra.Command, args []string) error {
	a, err := newLocalApp()
	if err != nil {
		return err
	}

	date := pickDate
	if date == "" {
		date = a.clock.TradingDate(a.clock.Now())
	}

	picks, err := output.PicksFor(a.sink.PickPath(), date)
	if err != nil {
		return fmt.Errorf("read picks: %w", err)
	}

	PrintHeader("Final Pick", fmt.Sprintf("Date      : %s", date), fmt.Sprintf("File      : %s", a.sink.PickPath()))
	if len(picks) == 0 {
		fmt.Println("  No pick recorded for this date")
		return nil
	}

	for _, p := range picks {
		PrintPick(p)
	}
	return nil
}
