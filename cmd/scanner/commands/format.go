package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/orchestrator"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	heavyRule = "═══════════════════════════════════════════════════════════"
	lightRule = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a formatted command header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	fmt.Println(heavyRule)
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		fmt.Println(lightRule)
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	fmt.Println(heavyRule)
}

// PrintWatchlist prints the top-N table
func PrintWatchlist(rows []contracts.WatchlistRow) {
	if len(rows) == 0 {
		fmt.Println("  (no candidates)")
		return
	}
	fmt.Printf("  %-3s %-8s %8s %9s %12s\n", "#", "TICKER", "SCORE", "GAP%", "VOLUME")
	for i, r := range rows {
		fmt.Printf("  %-3d %-8s %8.2f %9.2f %12d\n", i+1, r.Ticker, r.Score, r.GapPct, r.Volume)
	}
}

// PrintPick prints one pick record
func PrintPick(rec contracts.FinalPickRecord) {
	marker := " "
	if rec.IsFinal {
		marker = "⭐"
	}
	fmt.Printf("%s %s %s  %-6s  gap=%.2f%%  rvol=%.2f  stretch=%.2f  pm_high=%.2f  open=%.2f  score=%.2f  [%s]\n",
		marker, rec.Date, rec.Time, rec.Ticker, rec.GapPct, rec.RVOL, rec.ATRStretch,
		rec.PremarketHigh, rec.OpenPrice, rec.Score, rec.Mode)
	if rec.Rationale != "" {
		fmt.Printf("     rationale: %s\n", rec.Rationale)
	}
	if rec.Catalyst != "" {
		fmt.Printf("     catalyst : %s\n", rec.Catalyst)
	}
}

// PrintTickResult prints the stage accounting of one tick
func PrintTickResult(res *orchestrator.TickResult) {
	PrintHeader(fmt.Sprintf("Tick %s (%s)", res.At.Format("2006-01-02 15:04:05"), res.Phase),
		fmt.Sprintf("Run ID    : %s", res.RunID),
		fmt.Sprintf("Session   : %s", res.Session),
		fmt.Sprintf("Funnel    : fetched %d → normalized %d → pool %d → screened %d → enriched %d → liquid %d → active %d",
			res.Fetched, res.Normalized, res.Pool, res.Screened, res.Enriched, res.Liquidity.Passed, res.Active),
		fmt.Sprintf("Selection : %s", res.Selection),
		fmt.Sprintf("Duration  : %s", res.Duration),
	)

	filtered := res.Filtered()
	if len(filtered) > 0 {
		fmt.Println("  Dropped:")
		reasons := make([]string, 0, len(filtered))
		for r := range filtered {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Printf("    %-36s %d\n", r, filtered[r])
		}
	}

	if res.ScoringError != "" {
		fmt.Printf("  ⚠️  scoring error: %s (fallback ordering)\n", res.ScoringError)
	}

	fmt.Println(lightRule)
	PrintWatchlist(res.Watchlist)

	if res.Pick != nil {
		fmt.Println(lightRule)
		PrintPick(*res.Pick)
		if !res.PickPersisted {
			fmt.Println("  ⚠️  pick not persisted yet (retried next tick)")
		}
	}
	fmt.Println()
}

// signalContext is cancelled on Ctrl+C / SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// maskPassword hides the password part of a connection URL
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}
	creds := url[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return url[:scheme+3] + creds[:colon] + ":****" + url[at:]
	}
	return url
}
