package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/gapscan/internal/analysis"
	"github.com/wonny/gapscan/internal/output"
)

// tradeCmd represents the trade command
var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "수동 매매 일지",
}

var tradeLogCmd = &cobra.Command{
	Use:   "log",
	Short: "매매 기록 추가 (P/L 자동 계산)",
	Long: `journal.csv 에 매매 1건을 추가합니다.
손익은 decimal 로 계산하며 센트 / 소수점 2자리로 반올림합니다.

Example:
  go run ./cmd/scanner trade log --ticker AAPL --side long --entry 10.25 --exit 11.40 --shares 100
  go run ./cmd/scanner trade log --ticker XYZ --side short --entry 5 --exit 4.2 --shares 300 --notes "faded open"`,
	RunE: runTradeLog,
}

var (
	tradeDate   string
	tradeTicker string
	tradeSide   string
	tradeEntry  string
	tradeExit   string
	tradeShares int64
	tradePlan   string
	tradeActual string
	tradeNotes  string
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeLogCmd)

	// Flags
	tradeLogCmd.Flags().StringVar(&tradeDate, "date", "", "거래일 (YYYY-MM-DD, 기본: 오늘)")
	tradeLogCmd.Flags().StringVar(&tradeTicker, "ticker", "", "종목 티커")
	tradeLogCmd.Flags().StringVar(&tradeSide, "side", "long", "long | short")
	tradeLogCmd.Flags().StringVar(&tradeEntry, "entry", "", "진입가")
	tradeLogCmd.Flags().StringVar(&tradeExit, "exit", "", "청산가")
	tradeLogCmd.Flags().Int64Var(&tradeShares, "shares", 0, "수량")
	tradeLogCmd.Flags().StringVar(&tradePlan, "plan", "", "계획")
	tradeLogCmd.Flags().StringVar(&tradeActual, "actual", "", "실제 진행")
	tradeLogCmd.Flags().StringVar(&tradeNotes, "notes", "", "메모")

	_ = tradeLogCmd.MarkFlagRequired("ticker")
	_ = tradeLogCmd.MarkFlagRequired("entry")
	_ = tradeLogCmd.MarkFlagRequired("exit")
	_ = tradeLogCmd.MarkFlagRequired("shares")
}

func runTradeLog(cmd *cobra.Command, args []string) error {
	a, err := newLocalApp()
	if err != nil {
		return err
	}

	entry, err := decimal.NewFromString(tradeEntry)
	if err != nil {
		return fmt.Errorf("invalid --entry: %w", err)
	}
	exit, err := decimal.NewFromString(tradeExit)
	if err != nil {
		return fmt.Errorf("invalid --exit: %w", err)
	}

	date := tradeDate
	if date == "" {
		date = a.clock.TradingDate(a.clock.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid --date (expected YYYY-MM-DD): %w", err)
	}

	journal := output.NewJournal(filepath.Join(a.cfg.OutputDir, output.JournalFile))
	trade := output.Trade{
		Date:       date,
		Ticker:     tradeTicker,
		Side:       output.Side(tradeSide),
		EntryPrice: entry,
		ExitPrice:  exit,
		Shares:     tradeShares,
		Plan:       tradePlan,
		Actual:     tradeActual,
		Notes:      tradeNotes,
	}

	pl, err := journal.RecordTrade(context.Background(), trade)
	if err != nil {
		return fmt.Errorf("record trade: %w", err)
	}

	a.log.WithFields(map[string]interface{}{
		"ticker":     trade.Ticker,
		"side":       trade.Side,
		"pl_dollar":  pl.Dollars.StringFixed(2),
		"pl_percent": pl.Percent.StringFixed(2),
	}).Info("Trade recorded")

	fmt.Printf("✅ Recorded %s %s x%d\n", tradeSide, tradeTicker, tradeShares)
	fmt.Printf("   Total cost : $%s\n", pl.TotalCost.StringFixed(2))
	fmt.Printf("   P/L        : $%s (%s%%)\n", pl.Dollars.StringFixed(2), pl.Percent.StringFixed(2))
	return nil
}

var tradeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "매매 일지 통계 (승률 / 손익 / 손실 tail)",
	Long: `journal.csv 전체 또는 기간별 성과를 요약합니다.

출력:
- 거래 수 / 승률 / 총 손익
- 평균 / 표준편차 수익률 (%)
- 최고 / 최악 거래
- 95% historical VaR / CVaR (거래당 수익률)

--week 는 이번 주 (월~일) 로 기간을 정하고 티커별 손익 리포트를
OUTPUT_DIR/reports/weekly_<from>_to_<to>.md 로 저장합니다.

Example:
  go run ./cmd/scanner trade stats
  go run ./cmd/scanner trade stats --from 2026-03-01 --to 2026-03-31
  go run ./cmd/scanner trade stats --week --week-of 2026-03-04`,
	RunE: runTradeStats,
}

var (
	tradeStatsFrom   string
	tradeStatsTo     string
	tradeStatsWeek   bool
	tradeStatsWeekOf string
)

func init() {
	tradeCmd.AddCommand(tradeStatsCmd)

	// Flags
	tradeStatsCmd.Flags().StringVar(&tradeStatsFrom, "from", "", "시작일 (YYYY-MM-DD)")
	tradeStatsCmd.Flags().StringVar(&tradeStatsTo, "to", "", "종료일 (YYYY-MM-DD)")
	tradeStatsCmd.Flags().BoolVar(&tradeStatsWeek, "week", false, "주간 요약 + 리포트 저장")
	tradeStatsCmd.Flags().StringVar(&tradeStatsWeekOf, "week-of", "", "주간 기준일 (YYYY-MM-DD, 기본: 오늘)")
}

func runTradeStats(cmd *cobra.Command, args []string) error {
	a, err := newLocalApp()
	if err != nil {
		return err
	}

	path := filepath.Join(a.cfg.OutputDir, output.JournalFile)
	entries, err := output.ReadJournal(path)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	from, to := tradeStatsFrom, tradeStatsTo
	if tradeStatsWeek {
		ref := a.clock.Now()
		if tradeStatsWeekOf != "" {
			ref, err = time.ParseInLocation("2006-01-02", tradeStatsWeekOf, a.clock.Location())
			if err != nil {
				return fmt.Errorf("invalid --week-of (expected YYYY-MM-DD): %w", err)
			}
		}
		from, to = analysis.WeekBounds(ref)
	}

	stats := analysis.SummarizeJournal(entries, from, to)
	PrintHeader("Trade Journal Stats",
		fmt.Sprintf("File      : %s", path),
		fmt.Sprintf("Trades    : %d (win %d / loss %d, %.1f%%)", stats.Trades, stats.Wins, stats.Losses, stats.WinRate*100),
		fmt.Sprintf("Total P/L : $%s", stats.TotalPL.StringFixed(2)),
		fmt.Sprintf("Return    : avg %.2f%%, stdev %.2f%%", stats.AvgPct, stats.StdDevPct),
		fmt.Sprintf("Tail      : VaR%.0f %.2f%%, CVaR %.2f%%", stats.Tail.Confidence*100, stats.Tail.VaR, stats.Tail.CVaR),
	)

	if stats.Best != nil {
		fmt.Printf("  Best  : %s %s $%s (%s%%)\n", stats.Best.Date, stats.Best.Ticker, stats.Best.Dollars.StringFixed(2), stats.Best.Percent.StringFixed(2))
		fmt.Printf("  Worst : %s %s $%s (%s%%)\n", stats.Worst.Date, stats.Worst.Ticker, stats.Worst.Dollars.StringFixed(2), stats.Worst.Percent.StringFixed(2))
	}
	if len(stats.ByTicker) > 0 {
		fmt.Println("  By ticker:")
		for _, tp := range stats.ByTicker {
			fmt.Printf("    %-6s trades=%-3d P/L=$%s\n", tp.Ticker, tp.Trades, tp.PL.StringFixed(2))
		}
	}

	if !tradeStatsWeek {
		return nil
	}
	report, err := writeReport(a.cfg.OutputDir, fmt.Sprintf("weekly_%s_to_%s.md", from, to), stats.WeeklyMarkdown(from, to))
	if err != nil {
		return err
	}
	fmt.Printf("\n  Report saved: %s\n", report)
	return nil
}
