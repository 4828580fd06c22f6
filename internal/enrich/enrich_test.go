package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
)

var ny, _ = time.LoadLocation("America/New_York")

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, ny)
}

type fakeProvider struct {
	daily      map[string][]contracts.DailyBar
	minute     map[string][]contracts.MinuteBar
	dailyErr   error
	dailyCalls int
	minuteCall int
}

func (f *fakeProvider) FetchSnapshots(ctx context.Context, limit int) ([]contracts.RawSnapshot, error) {
	return nil, nil
}

func (f *fakeProvider) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.DailyBar, error) {
	f.dailyCalls++
	if f.dailyErr != nil {
		return nil, f.dailyErr
	}
	return f.daily[ticker], nil
}

func (f *fakeProvider) MinuteBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.MinuteBar, error) {
	f.minuteCall++
	return f.minute[ticker], nil
}

func flatBars(n int, close, rangeWidth, volume float64) []contracts.DailyBar {
	bars := make([]contracts.DailyBar, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = contracts.DailyBar{
			Date:   start.AddDate(0, 0, i),
			Open:   close,
			High:   close + rangeWidth/2,
			Low:    close - rangeWidth/2,
			Close:  close,
			Volume: volume,
		}
	}
	return bars
}

func newEnricher(t *testing.T, p *fakeProvider) (*Enricher, *state.EngineState) {
	t.Helper()
	cfg, err := strategyconfig.Default()
	require.NoError(t, err)
	clock, err := session.New(cfg)
	require.NoError(t, err)
	es := state.NewEngineState(5)
	return NewEnricher(cfg.Enrichment, cfg.Scoring.IntradayGapReference, p, es.History, es.Daily, clock, logger.Nop()), es
}

func TestGapPct(t *testing.T) {
	s := contracts.Snapshot{Ticker: "AAA", LastPrice: 12, PrevClose: 10}

	assert.InDelta(t, 20.0, GapPct(s, 0, false, "open"), 1e-9)
	assert.InDelta(t, 20.0, GapPct(s, 11, false, "open"), 1e-9, "premarket ignores the anchor")
	assert.InDelta(t, 9.0909, GapPct(s, 11, true, "open"), 1e-3)
	assert.InDelta(t, 20.0, GapPct(s, 11, true, "prev_close"), 1e-9)
	assert.InDelta(t, 20.0, GapPct(s, 0, true, "open"), 1e-9, "no anchor yet")
	assert.Equal(t, 0.0, GapPct(contracts.Snapshot{LastPrice: 5}, 0, false, "open"))
}

func TestATR(t *testing.T) {
	atr, ok := ATR(flatBars(15, 10, 2, 1), 14)
	require.True(t, ok)
	assert.InDelta(t, 2.0, atr, 1e-9)

	_, ok = ATR(flatBars(14, 10, 2, 1), 14)
	assert.False(t, ok)

	// gap up: true range uses the previous close
	bars := flatBars(2, 10, 0, 1)
	bars[1].High, bars[1].Low, bars[1].Close = 15, 14, 14.5
	atr, ok = ATR(bars, 1)
	require.True(t, ok)
	assert.InDelta(t, 5.0, atr, 1e-9)
}

func TestAverageVolume(t *testing.T) {
	bars := flatBars(25, 10, 1, 100)
	bars[0].Volume = 1e9 // outside the 20 newest
	assert.InDelta(t, 100.0, AverageVolume(bars, 20), 1e-9)
	assert.InDelta(t, 100.0, AverageVolume(bars[20:], 20), 1e-9)
	assert.Equal(t, 0.0, AverageVolume(nil, 20))
}

func TestATRStretchAndMaxHigh(t *testing.T) {
	s := contracts.Snapshot{LastPrice: 14, PrevClose: 10}
	assert.InDelta(t, 2.0, ATRStretch(s, 2), 1e-9)
	assert.Equal(t, 0.0, ATRStretch(s, 0))

	assert.Equal(t, 7.5, MaxHigh([]contracts.MinuteBar{{High: 5}, {High: 7.5}, {High: 6}}))
	assert.Equal(t, 0.0, MaxHigh(nil))
}

func TestEnrich(t *testing.T) {
	p := &fakeProvider{
		daily: map[string][]contracts.DailyBar{"AAA": flatBars(30, 10, 0.5, 1_000_000)},
		minute: map[string][]contracts.MinuteBar{"AAA": {
			{Start: at(4, 5), High: 11.5},
			{Start: at(9, 10), High: 12.25},
			{Start: at(9, 30), High: 20}, // regular session, excluded
		}},
	}
	e, _ := newEnricher(t, p)

	snap := contracts.Snapshot{Ticker: "AAA", LastPrice: 12, PrevClose: 10, Volume: 3_000_000}
	c, err := e.Enrich(context.Background(), snap, at(9, 45))
	require.NoError(t, err)

	assert.InDelta(t, 20.0, c.GapPct, 1e-9)
	assert.InDelta(t, 3.0, c.RVOL, 1e-9)
	assert.InDelta(t, 0.5, c.ATR, 1e-9)
	assert.InDelta(t, 4.0, c.ATRStretch, 1e-9)
	assert.Equal(t, 12.25, c.PremarketHigh)

	// daily stats and the post-open premarket high are cached for the day
	_, err = e.Enrich(context.Background(), snap, at(9, 50))
	require.NoError(t, err)
	assert.Equal(t, 1, p.dailyCalls)
	assert.Equal(t, 1, p.minuteCall)
}

func TestEnrich_DailyCacheClearedByDayReset(t *testing.T) {
	p := &fakeProvider{daily: map[string][]contracts.DailyBar{"AAA": flatBars(30, 10, 0.5, 1_000_000)}}
	e, es := newEnricher(t, p)
	require.True(t, es.ResetForDay("2026-03-02", true))

	snap := contracts.Snapshot{Ticker: "AAA", LastPrice: 12, PrevClose: 10, Volume: 1_000_000}
	_, err := e.Enrich(context.Background(), snap, at(9, 45))
	require.NoError(t, err)
	assert.Equal(t, 1, es.Daily.Len())

	// same day: served from the cache
	require.False(t, es.ResetForDay("2026-03-02", true))
	_, err = e.Enrich(context.Background(), snap, at(9, 50))
	require.NoError(t, err)
	assert.Equal(t, 1, p.dailyCalls)

	// next day: only the engine's reset clears it
	require.True(t, es.ResetForDay("2026-03-03", false))
	assert.Equal(t, 0, es.Daily.Len())
	_, err = e.Enrich(context.Background(), snap, at(9, 45).AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, p.dailyCalls)
}

func TestEnrich_UsesOpenAnchorIntraday(t *testing.T) {
	p := &fakeProvider{daily: map[string][]contracts.DailyBar{"AAA": flatBars(30, 10, 0.5, 1_000_000)}}
	e, es := newEnricher(t, p)
	require.True(t, es.History.RecordOpenAnchor("AAA", 11))

	c, err := e.Enrich(context.Background(), contracts.Snapshot{Ticker: "AAA", LastPrice: 12.1, PrevClose: 10, Volume: 1}, at(9, 40))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, c.GapPct, 1e-9)
	assert.Equal(t, 11.0, c.OpenPrice)
}

func TestEnrich_ShortHistoryFallsBackATR(t *testing.T) {
	p := &fakeProvider{daily: map[string][]contracts.DailyBar{"AAA": flatBars(5, 10, 0.5, 1000)}}
	e, _ := newEnricher(t, p)

	c, err := e.Enrich(context.Background(), contracts.Snapshot{Ticker: "AAA", LastPrice: 11, PrevClose: 10, Volume: 1}, at(8, 0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.ATR)
}

func TestEnrich_Errors(t *testing.T) {
	p := &fakeProvider{dailyErr: errors.New("timeout")}
	e, _ := newEnricher(t, p)
	_, err := e.Enrich(context.Background(), contracts.Snapshot{Ticker: "AAA", LastPrice: 11, PrevClose: 10}, at(8, 0))
	assert.ErrorIs(t, err, contracts.ErrEnrichment)

	p = &fakeProvider{daily: map[string][]contracts.DailyBar{"AAA": flatBars(20, 10, 0.5, 0)}}
	e, _ = newEnricher(t, p)
	_, err = e.Enrich(context.Background(), contracts.Snapshot{Ticker: "AAA", LastPrice: 11, PrevClose: 10}, at(8, 0))
	assert.ErrorIs(t, err, contracts.ErrEnrichment)
}

func TestEnrichAll_DropsFailures(t *testing.T) {
	p := &fakeProvider{daily: map[string][]contracts.DailyBar{"AAA": flatBars(20, 10, 0.5, 100)}}
	e, _ := newEnricher(t, p)

	snaps := []contracts.Snapshot{
		{Ticker: "AAA", LastPrice: 11, PrevClose: 10, Volume: 100},
		{Ticker: "BBB", LastPrice: 11, PrevClose: 10, Volume: 100},
	}
	out, failed := e.EnrichAll(context.Background(), snaps, at(8, 0))
	require.Len(t, out, 1)
	assert.Equal(t, "AAA", out[0].Ticker)
	assert.Equal(t, 1, failed)
}
