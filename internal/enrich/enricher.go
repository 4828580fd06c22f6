package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
)

// Enricher turns snapshots into candidates
// ⭐ SSOT: gap / RVOL / ATR 계산은 여기서만
type Enricher struct {
	provider  contracts.MarketDataProvider
	history   *state.SnapshotHistory
	daily     *state.DailyCache // 일자 전환 시 orchestrator 가 비움
	clock     *session.Clock
	cfg       strategyconfig.Enrichment
	reference string
	logger    *logger.Logger
}

// NewEnricher creates an enricher.
// reference is the intraday gap reference ("open" or "prev_close").
func NewEnricher(cfg strategyconfig.Enrichment, reference string, provider contracts.MarketDataProvider, history *state.SnapshotHistory, daily *state.DailyCache, clock *session.Clock, log *logger.Logger) *Enricher {
	return &Enricher{
		provider:  provider,
		history:   history,
		daily:     daily,
		clock:     clock,
		cfg:       cfg,
		reference: reference,
		logger:    log,
	}
}

// Enrich builds the candidate for one snapshot at now.
// A bar fetch failure or zero average volume is ErrEnrichment; missing
// prices are left to the liquidity gate.
func (e *Enricher) Enrich(ctx context.Context, snap contracts.Snapshot, now time.Time) (contracts.Candidate, error) {
	stats, err := e.stats(ctx, snap.Ticker, now)
	if err != nil {
		return contracts.Candidate{}, err
	}

	anchor, _ := e.history.OpenAnchor(snap.Ticker)

	c := contracts.Candidate{
		Snapshot:   snap,
		GapPct:     GapPct(snap, anchor, e.clock.IsRegularSession(now), e.reference),
		RVOL:       float64(snap.Volume) / stats.AvgVolume,
		AvgVolume:  stats.AvgVolume,
		ATR:        stats.ATR,
		ATRStretch: ATRStretch(snap, stats.ATR),
		OpenPrice:  anchor,
	}

	if e.cfg.PremarketHigh {
		c.PremarketHigh = e.premarketHigh(ctx, snap.Ticker, now)
	}
	return c, nil
}

// EnrichAll enriches snapshots, dropping failures.
// Returns the candidates and the number dropped.
func (e *Enricher) EnrichAll(ctx context.Context, snaps []contracts.Snapshot, now time.Time) ([]contracts.Candidate, int) {
	candidates := make([]contracts.Candidate, 0, len(snaps))
	failed := 0

	for _, s := range snaps {
		if ctx.Err() != nil {
			failed += len(snaps) - len(candidates) - failed
			break
		}
		c, err := e.Enrich(ctx, s, now)
		if err != nil {
			failed++
			e.logger.WithFields(map[string]interface{}{
				"ticker": s.Ticker,
				"error":  err.Error(),
			}).Debug("Enrichment failed, ticker dropped")
			continue
		}
		candidates = append(candidates, c)
	}

	e.logger.WithFields(map[string]interface{}{
		"input":    len(snaps),
		"enriched": len(candidates),
		"failed":   failed,
	}).Info("Enrichment completed")

	return candidates, failed
}

func (e *Enricher) stats(ctx context.Context, ticker string, now time.Time) (state.DailyStats, error) {
	if s, ok := e.daily.Stats(ticker); ok {
		return s, nil
	}

	from := now.AddDate(0, 0, -e.cfg.DailyCalendarDays)
	to := now.AddDate(0, 0, -1)
	bars, err := e.provider.DailyBars(ctx, ticker, from, to)
	if err != nil {
		return state.DailyStats{}, fmt.Errorf("%w: daily bars for %s: %v", contracts.ErrEnrichment, ticker, err)
	}

	s := state.DailyStats{AvgVolume: AverageVolume(bars, e.cfg.AvgVolumeDays)}
	if s.AvgVolume <= 0 {
		return state.DailyStats{}, fmt.Errorf("%w: zero average volume for %s", contracts.ErrEnrichment, ticker)
	}

	atr, ok := ATR(bars, e.cfg.ATRPeriod)
	if !ok {
		atr = e.cfg.ATRFallback
		s.ATRFallback = true
	}
	s.ATR = atr

	e.daily.SetStats(ticker, s)
	return s, nil
}

// premarketHigh is the max 1-minute high between premarket start and the
// open (exclusive). Best effort: failures give 0.
func (e *Enricher) premarketHigh(ctx context.Context, ticker string, now time.Time) float64 {
	if h, ok := e.daily.PremarketHigh(ticker); ok {
		return h
	}

	from := e.clock.PremarketStart(now)
	open := e.clock.MarketOpen(now)
	if now.Before(from) {
		return 0
	}
	to := open.Add(-time.Second)
	final := !now.Before(open)
	if !final {
		to = now
	}

	bars, err := e.provider.MinuteBars(ctx, ticker, from, to)
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Debug("Premarket high unavailable")
		return 0
	}

	in := bars[:0:0]
	for _, b := range bars {
		if !b.Start.Before(from) && b.Start.Before(open) {
			in = append(in, b)
		}
	}
	high := MaxHigh(in)

	if final {
		e.daily.SetPremarketHigh(ticker, high)
	}
	return high
}
