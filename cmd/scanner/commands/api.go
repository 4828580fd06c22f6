package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "조회 API 서버 시작",
	Long: `출력 파일 조회용 REST API 서버를 시작합니다.
스캔 루프 상태(/api/state, /api/watchlist, /ws)는 'scan --api' 또는
'scheduler start --api' 프로세스에서만 제공됩니다.

Endpoints:
  GET  /health                 - Health check
  GET  /api/pick?date=         - 픽 파일 조회 (기본: 오늘)
  GET  /api/picks/recent       - 최근 최종 픽 (DATABASE_URL 필요)
  GET  /api/analysis?date=     - watchlist 분석
  GET  /api/state              - 엔진 상태
  GET  /api/watchlist          - 최신 상위 후보
  GET  /api/scheduler/jobs     - 스케줄 작업 통계
  GET  /metrics                - Prometheus
  GET  /ws                     - 실시간 watchlist / pick push

Example:
  go run ./cmd/scanner api
  go run ./cmd/scanner api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newLocalApp()
	if err != nil {
		return err
	}

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	server := a.router(nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
