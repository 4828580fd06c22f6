package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/gapscan/internal/output"
)

// defaultConfidence for the per-trade tail loss figures
const defaultConfidence = 0.95

// TailRisk is the historical loss tail of per-trade returns.
// Losses are positive percentages (e.g. 4.5 = 4.5% loss).
type TailRisk struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// TickerPL is one ticker's share of the journal
type TickerPL struct {
	Ticker string          `json:"ticker"`
	Trades int             `json:"trades"`
	PL     decimal.Decimal `json:"pl"`
}

// JournalStats summarizes the manual trade journal
type JournalStats struct {
	Trades    int                  `json:"trades"`
	Wins      int                  `json:"wins"`
	Losses    int                  `json:"losses"`
	Breakeven int                  `json:"breakeven"`
	WinRate   float64              `json:"win_rate"`
	TotalPL   decimal.Decimal      `json:"total_pl"`
	AvgPL     decimal.Decimal      `json:"avg_pl"`
	AvgPct    float64              `json:"avg_pct"`
	StdDevPct float64              `json:"stddev_pct"`
	Best      *output.JournalEntry `json:"best,omitempty"`
	Worst     *output.JournalEntry `json:"worst,omitempty"`
	Tail      TailRisk             `json:"tail"`
	ByTicker  []TickerPL           `json:"by_ticker"` // P/L desc
}

// SummarizeJournal computes win rate, P/L totals and the return tail
// for entries (optionally limited to [from, to] dates, inclusive; "" = open)
func SummarizeJournal(entries []output.JournalEntry, from, to string) JournalStats {
	stats := JournalStats{TotalPL: decimal.Zero, AvgPL: decimal.Zero}

	byTicker := make(map[string]*TickerPL)
	returns := make([]float64, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if (from != "" && e.Date < from) || (to != "" && e.Date > to) {
			continue
		}

		stats.Trades++
		stats.TotalPL = stats.TotalPL.Add(e.Dollars)
		switch {
		case e.Dollars.IsPositive():
			stats.Wins++
		case e.Dollars.IsNegative():
			stats.Losses++
		default:
			stats.Breakeven++
		}

		ticker := strings.ToUpper(e.Ticker)
		tp, ok := byTicker[ticker]
		if !ok {
			tp = &TickerPL{Ticker: ticker, PL: decimal.Zero}
			byTicker[ticker] = tp
		}
		tp.Trades++
		tp.PL = tp.PL.Add(e.Dollars)

		if stats.Best == nil || e.Dollars.GreaterThan(stats.Best.Dollars) {
			stats.Best = &entries[i]
		}
		if stats.Worst == nil || e.Dollars.LessThan(stats.Worst.Dollars) {
			stats.Worst = &entries[i]
		}

		pct, _ := e.Percent.Float64()
		returns = append(returns, pct)
	}

	if stats.Trades == 0 {
		return stats
	}

	for _, tp := range byTicker {
		stats.ByTicker = append(stats.ByTicker, *tp)
	}
	sort.Slice(stats.ByTicker, func(i, j int) bool {
		a, b := stats.ByTicker[i], stats.ByTicker[j]
		if !a.PL.Equal(b.PL) {
			return a.PL.GreaterThan(b.PL)
		}
		return a.Ticker < b.Ticker
	})

	stats.WinRate = float64(stats.Wins) / float64(stats.Trades)
	stats.AvgPL = stats.TotalPL.Div(decimal.NewFromInt(int64(stats.Trades))).Round(2)
	stats.AvgPct = mean(returns)
	stats.StdDevPct = stdDev(returns)
	stats.Tail = historicalTail(returns, defaultConfidence)
	return stats
}

// WeekBounds returns the Monday..Sunday dates of ref's week
func WeekBounds(ref time.Time) (string, string) {
	offset := (int(ref.Weekday()) + 6) % 7 // Monday = 0
	monday := ref.AddDate(0, 0, -offset)
	return monday.Format(dateLayout), monday.AddDate(0, 0, 6).Format(dateLayout)
}

// WeeklyMarkdown renders the stats for [from, to] as a markdown summary
func (s JournalStats) WeeklyMarkdown(from, to string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Weekly Summary (%s to %s)\n\n", from, to)
	fmt.Fprintf(&b, "- Trades: **%d**  |  Wins: **%d**  |  Losses: **%d**  |  Breakeven: **%d**\n",
		s.Trades, s.Wins, s.Losses, s.Breakeven)
	fmt.Fprintf(&b, "- Win rate: **%.2f%%**\n", s.WinRate*100)
	fmt.Fprintf(&b, "- Total P/L: **$%s**  |  Avg P/L: **$%s**  |  Avg P/L %%: **%.2f%%**\n",
		s.TotalPL.StringFixed(2), s.AvgPL.StringFixed(2), s.AvgPct)
	if s.Best != nil {
		fmt.Fprintf(&b, "\n- Best: **%s** $%s\n", s.Best.Ticker, s.Best.Dollars.StringFixed(2))
		fmt.Fprintf(&b, "- Worst: **%s** $%s\n", s.Worst.Ticker, s.Worst.Dollars.StringFixed(2))
	}

	b.WriteString("\n## P/L by Ticker\n\n")
	if len(s.ByTicker) == 0 {
		b.WriteString("_No trades this week_\n")
	}
	for _, tp := range s.ByTicker {
		fmt.Fprintf(&b, "- %s: trades=%d, P/L=$%s\n", tp.Ticker, tp.Trades, tp.PL.StringFixed(2))
	}
	return b.String()
}

// historicalTail is historical-simulation VaR / expected shortfall
func historicalTail(returns []float64, confidence float64) TailRisk {
	tail := TailRisk{Confidence: confidence}
	if len(returns) == 0 {
		return tail
	}

	// 오름차순: 손실이 앞에
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	if sorted[idx] < 0 {
		tail.VaR = -sorted[idx]
	}

	var sum float64
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	if avg := sum / float64(idx+1); avg < 0 {
		tail.CVaR = -avg
	}
	return tail
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
