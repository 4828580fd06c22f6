package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/gapscan/internal/analysis"
	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/output"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "watchlist 스캔 이력 분석",
	Long: `watchlist.csv 의 하루치 기록을 티커별로 요약합니다.

출력:
- 상위 후보 등장 횟수
- 최초 등장 시각 / 점수
- 최고 점수와 그 시각
- 갭 변화 (마지막 - 최초)

Example:
  go run ./cmd/scanner analyze
  go run ./cmd/scanner analyze --date 2026-03-02 --ticker AAPL
  go run ./cmd/scanner analyze --file output/archive/2026-03-02/watchlist.csv --date 2026-03-02`,
	RunE: runAnalyze,
}

var (
	analyzeDate   string
	analyzeTicker string
	analyzeFile   string
)

var analyzeEODCmd = &cobra.Command{
	Use:   "eod",
	Short: "장 마감 리뷰 (놓친 기회 / 진입·청산 구간 / 매매 일지 비교)",
	Long: `watchlist.csv 의 티커별 갭 궤적으로 하루 중 잡을 수 있었던 상승을 찾고
journal.csv 의 당일 매매와 비교합니다.

조건 (기본):
- 최초 등장 → 최고 갭 +8pt 이상
- 최초 등장 14:00 이전, 최고점까지 5분 이상
- 최대 거래량 1,000,000 이상

리포트: OUTPUT_DIR/reports/eod_<date>.md

Example:
  go run ./cmd/scanner analyze eod
  go run ./cmd/scanner analyze eod --date 2026-03-02 --min-gain 5 --no-report`,
	RunE: runAnalyzeEOD,
}

var (
	eodMinGain   float64
	eodMinVolume int64
	eodTop       int
	eodNoReport  bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeEODCmd)

	// Flags
	analyzeCmd.PersistentFlags().StringVar(&analyzeDate, "date", "", "거래일 (YYYY-MM-DD, 기본: 오늘)")
	analyzeCmd.PersistentFlags().StringVar(&analyzeFile, "file", "", "watchlist 파일 (기본: OUTPUT_DIR/watchlist.csv)")
	analyzeCmd.Flags().StringVar(&analyzeTicker, "ticker", "", "특정 티커 상세")

	defaults := analysis.DefaultEODOptions()
	analyzeEODCmd.Flags().Float64Var(&eodMinGain, "min-gain", defaults.MinGainPts, "최소 상승폭 (갭 pt)")
	analyzeEODCmd.Flags().Int64Var(&eodMinVolume, "min-volume", defaults.MinVolume, "최소 거래량")
	analyzeEODCmd.Flags().IntVar(&eodTop, "top", defaults.Top, "리포트 후보 수")
	analyzeEODCmd.Flags().BoolVar(&eodNoReport, "no-report", false, "markdown 리포트 생략")
}

// loadWatchlistDay resolves --date / --file and reads the watchlist
func loadWatchlistDay(a *app) (string, []contracts.WatchlistRow, error) {
	date := analyzeDate
	if date == "" {
		date = a.clock.TradingDate(a.clock.Now())
	}
	path := analyzeFile
	if path == "" {
		path = a.sink.WatchlistPath()
	}

	rows, err := output.ReadWatchlist(path, a.clock.Location())
	if err != nil {
		return "", nil, fmt.Errorf("read watchlist: %w", err)
	}
	return date, rows, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newLocalApp()
	if err != nil {
		return err
	}

	date, rows, err := loadWatchlistDay(a)
	if err != nil {
		return err
	}

	report := analysis.Analyze(rows, date)
	PrintHeader("Scan Analysis",
		fmt.Sprintf("Date      : %s", report.Date),
		fmt.Sprintf("Ticks     : %d", report.Ticks),
		fmt.Sprintf("Tickers   : %d", len(report.Tickers)),
	)

	if analyzeTicker != "" {
		summary, ok := report.Find(strings.ToUpper(analyzeTicker))
		if !ok {
			fmt.Printf("  %s never reached the watchlist on %s\n", analyzeTicker, date)
			return nil
		}
		printSummary(summary)
		fmt.Println("  History:")
		for _, o := range summary.History {
			fmt.Printf("    %s  score=%7.2f  gap=%7.2f%%  vol=%d\n", o.At.Format("15:04:05"), o.Score, o.GapPct, o.Volume)
		}
		return nil
	}

	for _, s := range report.Tickers {
		printSummary(s)
	}
	return nil
}

func printSummary(s analysis.TickerSummary) {
	fmt.Printf("  %-6s  appearances=%-3d first=%s (%.2f)  best=%.2f @ %s  gap Δ=%+.2f\n",
		s.Ticker, s.Appearances,
		s.FirstSeen.At.Format("15:04"), s.FirstSeen.Score,
		s.Best.Score, s.Best.At.Format("15:04"), s.GapChange)
}

func runAnalyzeEOD(cmd *cobra.Command, args []string) error {
	a, err := newLocalApp()
	if err != nil {
		return err
	}

	date, rows, err := loadWatchlistDay(a)
	if err != nil {
		return err
	}
	trades, err := output.ReadJournal(filepath.Join(a.cfg.OutputDir, output.JournalFile))
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	opts := analysis.DefaultEODOptions()
	opts.MinGainPts = eodMinGain
	opts.MinVolume = eodMinVolume
	opts.Top = eodTop

	report := analysis.EndOfDay(rows, trades, date, opts)
	PrintHeader("End-of-Day Analysis",
		fmt.Sprintf("Date      : %s", report.Date),
		fmt.Sprintf("Tracked   : %d tickers", report.Tracked),
		fmt.Sprintf("Catchable : %d (>= %.1f pts)", len(report.Picks), opts.MinGainPts),
	)

	for _, p := range report.Picks {
		fmt.Printf("  #%d %-6s +%.1f pts\n", p.Rank, p.Ticker, p.GainPts)
		fmt.Printf("     Entry: %s\n", p.Entry)
		fmt.Printf("     Exit : %s\n", p.Exit)
	}

	if len(report.Trades) == 0 {
		fmt.Println("\n  📝 No trades logged for this date (scanner trade log ...)")
	}
	for _, t := range report.Trades {
		line := fmt.Sprintf("  %-6s $%s (%s%%)", t.Ticker, t.Dollars.StringFixed(2), t.Percent.StringFixed(2))
		if t.Rank > 0 {
			line += fmt.Sprintf("  ✅ pick #%d, captured %.0f%%", t.Rank, t.Capture*100)
		}
		fmt.Println(line)
	}
	if len(report.Trades) > 0 {
		for _, p := range report.Missed {
			fmt.Printf("  ⚠️  missed %s +%.1f pts (entry %s)\n", p.Ticker, p.GainPts, p.Entry)
		}
	}

	if eodNoReport {
		return nil
	}
	path, err := writeReport(a.cfg.OutputDir, fmt.Sprintf("eod_%s.md", date), report.Markdown())
	if err != nil {
		return err
	}
	fmt.Printf("\n  Report saved: %s\n", path)
	return nil
}

// writeReport writes a markdown report under OUTPUT_DIR/reports
func writeReport(outputDir, name, body string) (string, error) {
	dir := filepath.Join(outputDir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
