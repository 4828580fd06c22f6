package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/contracts"
)

func row(date, ticker string, h, m int, score, gap float64) contracts.WatchlistRow {
	return contracts.WatchlistRow{
		Date:      date,
		Ticker:    ticker,
		Score:     score,
		GapPct:    gap,
		Timestamp: time.Date(2026, 3, 2, h, m, 0, 0, time.UTC),
	}
}

func TestAnalyze(t *testing.T) {
	rows := []contracts.WatchlistRow{
		row("2026-03-02", "AAA", 9, 0, 10, 20),
		row("2026-03-02", "BBB", 9, 0, 12, 30),
		row("2026-03-02", "AAA", 9, 15, 25, 28),
		row("2026-03-02", "AAA", 9, 30, 18, 35),
		row("2026-03-02", "BBB", 9, 30, 11, 25),
		row("2026-03-02", "CCC", 9, 30, 40, 50),
		row("2026-03-01", "ZZZ", 9, 30, 99, 10),
	}

	r := Analyze(rows, "2026-03-02")
	assert.Equal(t, 3, r.Ticks)
	require.Len(t, r.Tickers, 3)

	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, []string{r.Tickers[0].Ticker, r.Tickers[1].Ticker, r.Tickers[2].Ticker})

	aaa, ok := r.Find("AAA")
	require.True(t, ok)
	assert.Equal(t, 3, aaa.Appearances)
	assert.Equal(t, 9, aaa.FirstSeen.At.Hour())
	assert.Equal(t, 0, aaa.FirstSeen.At.Minute())
	assert.Equal(t, 10.0, aaa.FirstSeen.Score)
	assert.Equal(t, 25.0, aaa.Best.Score)
	assert.Equal(t, 15, aaa.Best.At.Minute())
	assert.InDelta(t, 15.0, aaa.GapChange, 1e-9)

	_, ok = r.Find("ZZZ")
	assert.False(t, ok)
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil, "2026-03-02")
	assert.Equal(t, 0, r.Ticks)
	assert.Empty(t, r.Tickers)
}
