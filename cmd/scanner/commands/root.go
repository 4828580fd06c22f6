package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyPath string
	outputDir    string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "US equities gap scanner - 후보 선정 / 점수 엔진",
	Long: `Gap Scanner Unified CLI

프리마켓부터 정규장 초반까지 갭 종목을 스캔하고
09:30-09:35 선정 윈도우에서 하루 1개의 최종 픽을 기록합니다.

Usage:
  go run ./cmd/scanner [command]

Examples:
  go run ./cmd/scanner scan
  go run ./cmd/scanner once
  go run ./cmd/scanner scheduler start
  go run ./cmd/scanner pick show
  go run ./cmd/scanner analyze --date 2026-03-02
  go run ./cmd/scanner config check`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "strategy YAML (default: STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "output directory (default: OUTPUT_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
