package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/gapscan/internal/strategyconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "전략 설정 관리",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "전략 YAML 검증 (hash / 경고 / 세션별 임계값)",
	Long: `전략 설정을 로드해 검증하고 해시와 경고를 출력합니다.
검증 실패는 ErrConfig 로 종료 코드 1.

Example:
  go run ./cmd/scanner config check
  go run ./cmd/scanner config check --strategy configs/scanner.yaml --dump`,
	RunE: runConfigCheck,
}

var (
	configDump bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)

	// Flags
	configCheckCmd.Flags().BoolVar(&configDump, "dump", false, "기본값 적용된 전체 설정 출력 (JSON)")
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	strategy, _, err := strategyconfig.Load(cfg.StrategyConfigPath)
	if err != nil {
		return fmt.Errorf("❌ %s: %w", cfg.StrategyConfigPath, err)
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return fmt.Errorf("hash strategy: %w", err)
	}

	regular := strategy.Liquidity.For("regular")
	premarket := strategy.Liquidity.For("premarket")

	PrintHeader("Strategy Config Check",
		fmt.Sprintf("File      : %s", cfg.StrategyConfigPath),
		fmt.Sprintf("Strategy  : %s v%s (%s)", strategy.Meta.StrategyID, strategy.Meta.Version, strategy.Meta.Timezone),
		fmt.Sprintf("Hash      : %s", hash),
		fmt.Sprintf("Selection : %s-%s, pool %d, watchlist %d",
			strategy.Selection.WindowStart, strategy.Selection.WindowEnd,
			strategy.Selection.CandidatePool, strategy.Selection.WatchlistSize),
		fmt.Sprintf("Premarket : price ≥ %.2f, vol ≥ %d, avg vol ≥ %d, $vol ≥ %.0f",
			premarket.MinPrice, premarket.MinVolume, premarket.MinAvgVolume, premarket.MinDollarVolume),
		fmt.Sprintf("Regular   : price ≥ %.2f, vol ≥ %d, avg vol ≥ %d, $vol ≥ %.0f",
			regular.MinPrice, regular.MinVolume, regular.MinAvgVolume, regular.MinDollarVolume),
	)

	warnings := strategyconfig.Warn(strategy)
	for _, w := range warnings {
		fmt.Printf("  ⚠️  [%s] %s\n", w.Code, w.Message)
	}

	if configDump {
		out, err := json.MarshalIndent(strategy, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal strategy: %w", err)
		}
		fmt.Println(string(out))
	}

	fmt.Printf("\n✅ Config valid (%d warnings)\n", len(warnings))
	return nil
}
