package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/gapscan/internal/output"
	"github.com/wonny/gapscan/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "PostgreSQL 미러 연결 테스트",
	Long: `픽 / watchlist 미러 데이터베이스 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 데이터베이스 연결 생성
- Health Check 실행
- scanner 스키마 생성 (--migrate)
- 최근 최종 픽 조회

Example:
  go run ./cmd/scanner test-db
  go run ./cmd/scanner test-db --migrate`,
	RunE: runTestDB,
}

var (
	testDBMigrate bool
)

func init() {
	rootCmd.AddCommand(testDBCmd)

	// Flags
	testDBCmd.Flags().BoolVar(&testDBMigrate, "migrate", false, "scanner 스키마 생성 (CREATE IF NOT EXISTS)")
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Gap Scanner Database Connection Test ===")

	// Load configuration
	fmt.Println("Loading configuration...")
	cfg, err := loadConfig(true)
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Create database connection
	fmt.Println("Connecting to database...")
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connection established")

	// Get health status
	fmt.Println("Getting health status...")
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Timestamp: %v\n\n", status.Timestamp.Format(time.RFC3339))

	// Pool statistics
	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)
	fmt.Printf("   Acquire Count: %d\n\n", status.Stats.AcquireCount)

	repo := output.NewRepository(db.Pool)
	if testDBMigrate {
		fmt.Println("Ensuring scanner schema...")
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("❌ Schema migration failed: %w", err)
		}
		fmt.Println("✅ Schema ready")
	}

	picks, err := repo.RecentPicks(ctx, 5)
	if err != nil {
		fmt.Printf("⚠️  Could not read picks (run with --migrate first?): %v\n", err)
	} else {
		fmt.Printf("📌 Recent final picks: %d\n", len(picks))
		for _, p := range picks {
			PrintPick(p)
		}
	}

	fmt.Println("\n✅ All tests passed!")
	return nil
}
