package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/output"
)

func trail(ticker string, h, m int, gap float64, volume int64) contracts.WatchlistRow {
	return contracts.WatchlistRow{
		Date:      "2026-03-02",
		Ticker:    ticker,
		GapPct:    gap,
		Volume:    volume,
		Timestamp: time.Date(2026, 3, 2, h, m, 0, 0, time.UTC),
	}
}

func eodRows() []contracts.WatchlistRow {
	return []contracts.WatchlistRow{
		trail("AAA", 9, 0, 20, 2_000_000),
		trail("AAA", 9, 15, 25, 2_500_000),
		trail("AAA", 9, 30, 31, 3_000_000),
		trail("AAA", 9, 45, 30, 3_200_000),
		// peak two minutes after first seen: not catchable
		trail("BBB", 9, 0, 10, 5_000_000),
		trail("BBB", 9, 2, 25, 5_000_000),
		// first seen after 14:00
		trail("CCC", 14, 10, 5, 5_000_000),
		trail("CCC", 15, 0, 30, 5_000_000),
		// thin
		trail("DDD", 9, 0, 5, 400_000),
		trail("DDD", 10, 0, 20, 500_000),
		trail("EEE", 9, 0, 10, 2_000_000),
		trail("EEE", 10, 0, 19, 2_000_000),
	}
}

func TestEndOfDay_Picks(t *testing.T) {
	r := EndOfDay(eodRows(), nil, "2026-03-02", DefaultEODOptions())

	assert.Equal(t, 5, r.Tracked)
	require.Len(t, r.Picks, 2)

	aaa := r.Picks[0]
	assert.Equal(t, "AAA", aaa.Ticker)
	assert.Equal(t, 1, aaa.Rank)
	assert.InDelta(t, 11.0, aaa.GainPts, 1e-9)
	assert.Equal(t, int64(3_200_000), aaa.MaxVolume)
	assert.Equal(t, 9, aaa.Peak.At.Hour())
	assert.Equal(t, 30, aaa.Peak.At.Minute())

	// entry: first 30 minutes of the trail
	assert.Equal(t, 0, aaa.Entry.Start.Minute())
	assert.Equal(t, 30, aaa.Entry.End.Minute())
	assert.Equal(t, 20.0, aaa.Entry.MinGap)
	assert.Equal(t, 31.0, aaa.Entry.MaxGap)

	// exit: within two points of the peak
	assert.Equal(t, 30, aaa.Exit.Start.Minute())
	assert.Equal(t, 45, aaa.Exit.End.Minute())
	assert.Equal(t, 30.0, aaa.Exit.MinGap)

	assert.Equal(t, "EEE", r.Picks[1].Ticker)
	assert.Equal(t, 2, r.Picks[1].Rank)
	assert.Empty(t, r.Trades)
	assert.Len(t, r.Missed, 2)
}

func TestEndOfDay_JournalComparison(t *testing.T) {
	trades := []output.JournalEntry{
		entry("2026-03-02", "aaa", "55.00", "5.50"),
		entry("2026-03-02", "ZZZ", "-10.00", "-1.00"),
		entry("2026-03-03", "EEE", "90.00", "9.00"),
	}

	r := EndOfDay(eodRows(), trades, "2026-03-02", DefaultEODOptions())

	require.Len(t, r.Trades, 2)
	assert.Equal(t, "AAA", r.Trades[0].Ticker)
	assert.Equal(t, 1, r.Trades[0].Rank)
	assert.InDelta(t, 0.5, r.Trades[0].Capture, 1e-9)
	assert.Equal(t, 0, r.Trades[1].Rank)

	require.Len(t, r.Missed, 1)
	assert.Equal(t, "EEE", r.Missed[0].Ticker)

	md := r.Markdown()
	assert.Contains(t, md, "# End-of-Day Analysis - 2026-03-02")
	assert.Contains(t, md, "### #1: AAA (+11.0 pts)")
	assert.Contains(t, md, "HIT pick #1, captured 50%")
	assert.Contains(t, md, "- EEE: +9.0 pts")
}

func TestEndOfDay_NothingCatchable(t *testing.T) {
	opts := DefaultEODOptions()
	opts.MinGainPts = 50

	r := EndOfDay(eodRows(), nil, "2026-03-02", opts)
	assert.Empty(t, r.Picks)
	assert.Contains(t, r.Markdown(), "No catchable opportunities")
}
