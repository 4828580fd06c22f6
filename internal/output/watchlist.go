package output

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
)

// WatchlistFile is the default watchlist file name
const WatchlistFile = "watchlist.csv"

var watchlistHeader = []string{"date", "ticker", "score", "gap_pct", "volume", "timestamp"}

// absurd gaps are provider glitches
const (
	minSaneGap = -99.9
	maxSaneGap = 1000.0
)

// WatchlistCSV appends the per-tick top-N to watchlist.csv
type WatchlistCSV struct {
	file *csvFile
}

// NewWatchlistCSV creates a writer for path
func NewWatchlistCSV(path string) *WatchlistCSV {
	return &WatchlistCSV{file: newCSVFile(path, watchlistHeader)}
}

var _ contracts.WatchlistWriter = (*WatchlistCSV)(nil)

// WriteWatchlist appends rows, deduplicated by ticker (last wins) and
// skipping absurd gaps
func (w *WatchlistCSV) WriteWatchlist(ctx context.Context, rows []contracts.WatchlistRow) error {
	clean := SanitizeWatchlist(rows)

	records := make([][]string, 0, len(clean))
	for _, r := range clean {
		records = append(records, []string{
			r.Date,
			r.Ticker,
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			strconv.FormatFloat(r.GapPct, 'f', 2, 64),
			strconv.FormatInt(r.Volume, 10),
			r.Timestamp.Format("15:04:05"),
		})
	}

	if err := w.file.append(records); err != nil {
		return fmt.Errorf("%w: watchlist: %w", contracts.ErrPersistence, err)
	}
	return nil
}

// SanitizeWatchlist drops absurd gaps and keeps the last row per ticker,
// preserving first-seen order
func SanitizeWatchlist(rows []contracts.WatchlistRow) []contracts.WatchlistRow {
	index := make(map[string]int, len(rows))
	out := make([]contracts.WatchlistRow, 0, len(rows))

	for _, r := range rows {
		if r.GapPct <= minSaneGap || r.GapPct >= maxSaneGap {
			continue
		}
		if i, ok := index[r.Ticker]; ok {
			out[i] = r
			continue
		}
		index[r.Ticker] = len(out)
		out = append(out, r)
	}
	return out
}

// ReadWatchlist parses a watchlist file; timestamps are placed in loc.
// Rows that do not parse are skipped.
func ReadWatchlist(path string, loc *time.Location) ([]contracts.WatchlistRow, error) {
	raw, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.WatchlistRow, 0, len(raw))
	for _, r := range raw {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", r["date"]+" "+r["timestamp"], loc)
		if err != nil {
			continue
		}
		gap, err := strconv.ParseFloat(r["gap_pct"], 64)
		if err != nil {
			continue
		}
		score, _ := strconv.ParseFloat(r["score"], 64)
		volume, _ := strconv.ParseInt(r["volume"], 10, 64)

		out = append(out, contracts.WatchlistRow{
			Date:      r["date"],
			Ticker:    r["ticker"],
			Score:     score,
			GapPct:    gap,
			Volume:    volume,
			Timestamp: ts,
		})
	}
	return out, nil
}
