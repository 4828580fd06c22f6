package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/enrich"
	"github.com/wonny/gapscan/internal/heartbeat"
	"github.com/wonny/gapscan/internal/liquidity"
	"github.com/wonny/gapscan/internal/metrics"
	"github.com/wonny/gapscan/internal/scoring"
	"github.com/wonny/gapscan/internal/selection"
	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/internal/tradeability"
	"github.com/wonny/gapscan/pkg/logger"
	"github.com/wonny/gapscan/pkg/redis"
)

// catalystTimeout bounds the best-effort headline lookup
const catalystTimeout = 10 * time.Second

// Publisher receives live tick output (websocket hub)
type Publisher interface {
	PublishWatchlist(rows []contracts.WatchlistRow)
	PublishPick(rec contracts.FinalPickRecord)
}

// TickReporter stores per-tick stage counts (Postgres mirror)
type TickReporter interface {
	SaveTickReport(ctx context.Context, runID string, at time.Time, phase string, filtered map[string]int, totalInput, totalPassed int) error
}

// Ranker scores a batch best-first
type Ranker interface {
	ScoreAll(candidates []contracts.Candidate, now time.Time) ([]contracts.ScoredCandidate, error)
}

// Deps are the orchestrator's collaborators. Optional fields may be nil.
type Deps struct {
	Config    *strategyconfig.Config
	Clock     *session.Clock
	Provider  contracts.MarketDataProvider
	Picks     contracts.PickWriter
	Watchlist contracts.WatchlistWriter
	Logger    *logger.Logger

	Reference contracts.ReferenceProvider // type check
	Catalyst  contracts.CatalystSource
	Shared    *redis.Cache // cross-process verdict cache
	Publisher Publisher
	Reporter  TickReporter
	Metrics   *metrics.Recorder

	// PersistedFinal returns a final pick already written for date
	PersistedFinal func(date string) (*contracts.FinalPickRecord, error)
}

// Orchestrator runs the scan loop and owns all engine state
// ⭐ SSOT: EngineState 초기화 / tick 순서는 여기서만
type Orchestrator struct {
	cfg   *strategyconfig.Config
	clock *session.Clock
	state *state.EngineState

	provider   contracts.MarketDataProvider
	symbols    *tradeability.SymbolFilter
	types      *tradeability.TypeChecker
	deficiency *tradeability.DeficiencyChecker
	enricher   *enrich.Enricher
	gate       *liquidity.Gate
	detector   *heartbeat.Detector
	ranker     Ranker
	selector   *selection.Selector

	catalyst  contracts.CatalystSource
	picks     contracts.PickWriter
	watchlist contracts.WatchlistWriter
	publisher Publisher
	reporter  TickReporter
	persisted func(date string) (*contracts.FinalPickRecord, error)
	metrics   *metrics.Recorder
	logger    *logger.Logger

	runID string
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex // one tick at a time
	pending *contracts.FinalPickRecord

	lastMu sync.RWMutex
	last   *TickResult
}

// New wires the engine from its dependencies
func New(d Deps) (*Orchestrator, error) {
	if d.Config == nil || d.Clock == nil || d.Provider == nil || d.Picks == nil || d.Watchlist == nil || d.Logger == nil {
		return nil, fmt.Errorf("%w: orchestrator requires config, clock, provider, writers and logger", contracts.ErrConfig)
	}

	cfg := d.Config
	es := state.NewEngineState(cfg.History.Capacity)
	runID := uuid.NewString()
	log := d.Logger.WithField("run_id", runID)

	detector := heartbeat.NewDetector(cfg.Heartbeat, es.History, d.Clock, log)

	return &Orchestrator{
		cfg:        cfg,
		clock:      d.Clock,
		state:      es,
		provider:   d.Provider,
		symbols:    tradeability.NewSymbolFilter(cfg.Tradeability.Allowlist),
		types:      tradeability.NewTypeChecker(cfg.Tradeability.TypeCheck, d.Reference, d.Shared, log),
		deficiency: tradeability.NewDeficiencyChecker(cfg.Tradeability.Deficiency, d.Provider, es.Deficiency, d.Shared, log),
		enricher:   enrich.NewEnricher(cfg.Enrichment, cfg.Scoring.IntradayGapReference, d.Provider, es.History, es.Daily, d.Clock, log),
		gate:       liquidity.NewGate(cfg.Liquidity, log),
		detector:   detector,
		ranker:     scoring.NewScorer(cfg.Scoring, es.History, detector, d.Clock, log),
		selector:   selection.NewSelector(d.Clock, log),
		catalyst:   d.Catalyst,
		picks:      d.Picks,
		watchlist:  d.Watchlist,
		publisher:  d.Publisher,
		reporter:   d.Reporter,
		persisted:  d.PersistedFinal,
		metrics:    d.Metrics,
		logger:     log,
		runID:      runID,
		sleep:      sleepCtx,
	}, nil
}

// RunID identifies this process's scan run
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run ticks until the trading day is over or ctx is cancelled,
// sleeping the clock's cadence between ticks. CLOSED gaps inside the
// day (before premarket, between premarket and the open) keep the loop alive.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.WithFields(map[string]interface{}{
		"strategy": o.cfg.Meta.StrategyID,
		"timezone": o.cfg.Meta.Timezone,
	}).Info("Scan loop started")

	for {
		now := o.clock.Now()
		if o.clock.SessionOver(now) {
			o.flushPending(ctx, now)
			o.logger.WithField("date", o.clock.TradingDate(now)).Info("Session over, scan loop finished")
			return nil
		}

		if _, err := o.Tick(ctx, now); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.WithError(err).Error("Tick failed")
		}

		cadence := time.Duration(o.clock.CadenceMinutes(now)) * time.Minute
		o.logger.WithField("next_in", cadence.String()).Debug("Sleeping until next tick")
		if err := o.sleep(ctx, cadence); err != nil {
			o.logger.Info("Scan loop cancelled")
			return err
		}
	}
}

// Tick runs one scan pass at now.
// A DataFetch error abandons the tick with state untouched.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) (*TickResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	date := o.clock.TradingDate(now)
	o.startDay(date)

	phase := o.clock.Phase(now)
	sess := contracts.SessionFor(phase)
	res := newTickResult(o.runID, now, date, phase, sess)

	if phase == contracts.PhaseClosed {
		o.flushPick(ctx, res)
		o.finish(res, start)
		return res, nil
	}

	tickCtx, cancel := context.WithTimeout(ctx, o.cfg.Selection.TickTimeout)
	defer cancel()

	// 1. fetch
	raws, err := o.provider.FetchSnapshots(tickCtx, o.cfg.Selection.SnapshotLimit)
	if err != nil {
		if !errors.Is(err, contracts.ErrDataFetch) {
			err = fmt.Errorf("%w: %w", contracts.ErrDataFetch, err)
		}
		o.metrics.RecordTickError("data_fetch")
		o.logger.WithError(err).Warn("Snapshot fetch failed, tick abandoned")
		return nil, err
	}
	res.Fetched = len(raws)

	// 2. normalize + structural tradeability
	snaps := o.admit(raws, now, res)

	// 3. history + open anchors
	o.observe(snaps, now)

	// 4. pre-rank by raw gap, bound provider calls
	pool := preRank(snaps, o.cfg.Selection.CandidatePool)
	res.Pool = len(pool)

	// 5. reference + deficiency
	pool = o.screen(tickCtx, pool, date, now, res)

	// 6. enrich
	candidates, failed := o.enricher.EnrichAll(tickCtx, pool, now)
	res.Enriched, res.EnrichFailed = len(candidates), failed

	// 7. liquidity
	liquid, report := o.gate.Filter(candidates, sess)
	res.Liquidity = report
	o.metrics.RecordDrops("liquidity", report.Dropped)

	// 8. heartbeat
	active := o.pulse(liquid, now, res)

	// 9. score
	scored, scoreErr := o.ranker.ScoreAll(active, now)
	if scoreErr != nil {
		if !errors.Is(scoreErr, contracts.ErrScoring) {
			scoreErr = fmt.Errorf("%w: %w", contracts.ErrScoring, scoreErr)
		}
		res.ScoringError = scoreErr.Error()
		o.metrics.RecordTickError("scoring")
		o.logger.WithError(scoreErr).Warn("Scoring failed, fallback ordering in effect")
	}

	// 10. watchlist
	o.writeWatchlist(ctx, now, date, scored, scoreErr, active, res)

	// 11. final pick
	if rec := o.selector.Decide(now, scored, scoreErr, active); rec != nil {
		rec.RunID = o.runID
		rec.Catalyst = o.lookupCatalyst(ctx, rec.Ticker)
		o.pending = rec
		o.metrics.RecordFinalPick(string(rec.Mode))
		if o.publisher != nil {
			o.publisher.PublishPick(*rec)
		}
	}
	o.flushPick(ctx, res)

	res.Selection = o.selector.State()
	o.report(ctx, res)
	o.finish(res, start)
	return res, nil
}

// startDay resets engine state when the trading date changes
func (o *Orchestrator) startDay(date string) {
	if !o.state.ResetForDay(date, o.cfg.Tradeability.Deficiency.ResetDaily) {
		return
	}

	o.selector.Reset(date)
	o.pending = nil

	fields := map[string]interface{}{"date": date}
	if o.persisted != nil {
		rec, err := o.persisted(date)
		switch {
		case err != nil:
			o.logger.WithError(err).Warn("Could not read persisted pick, assuming none")
		case rec != nil:
			o.selector.Restore(*rec)
			fields["restored_pick"] = rec.Ticker
		}
	}
	o.logger.WithFields(fields).Info("New trading day, engine state reset")
}

// admit normalizes provider records and applies the structural symbol check
func (o *Orchestrator) admit(raws []contracts.RawSnapshot, now time.Time, res *TickResult) []contracts.Snapshot {
	snaps := make([]contracts.Snapshot, 0, len(raws))
	for _, raw := range raws {
		s, err := contracts.NormalizeSnapshot(raw, now)
		if err != nil {
			res.Invalid++
			o.logger.WithFields(map[string]interface{}{
				"ticker": raw.Ticker,
				"error":  err.Error(),
			}).Debug("Snapshot rejected")
			continue
		}
		if ok, reason := o.symbols.Check(s.Ticker); !ok {
			res.Rejected[reason]++
			continue
		}
		snaps = append(snaps, s)
	}
	res.Normalized = len(snaps) + sumCounts(res.Rejected)

	o.logger.WithFields(map[string]interface{}{
		"fetched":  res.Fetched,
		"invalid":  res.Invalid,
		"passed":   len(snaps),
		"filtered": res.Rejected,
	}).Info("Tradeability symbol filter completed")
	o.metrics.RecordDrops("symbol", res.Rejected)
	return snaps
}

// observe records history and, from the open on, each ticker's open anchor.
// Entries are stamped with the tick time: a quote that has not traded since
// the last tick still lands in history, so the detector can see it frozen.
func (o *Orchestrator) observe(snaps []contracts.Snapshot, now time.Time) {
	regular := o.clock.IsRegularSession(now)
	for _, s := range snaps {
		if s.LastPrice <= 0 {
			continue
		}
		o.state.History.Record(s.Ticker, s.LastPrice, s.Volume, now)

		if regular {
			anchor := s.Open
			if anchor <= 0 {
				anchor = s.LastPrice
			}
			o.state.History.RecordOpenAnchor(s.Ticker, anchor)
		}
	}
}

// screen applies the reference-type and deficiency exclusions
func (o *Orchestrator) screen(ctx context.Context, pool []contracts.Snapshot, date string, now time.Time, res *TickResult) []contracts.Snapshot {
	out := make([]contracts.Snapshot, 0, len(pool))
	for _, s := range pool {
		if ok, reason := o.types.Check(ctx, s.Ticker); !ok {
			res.Screen[reason]++
			continue
		}
		if v := o.deficiency.Check(ctx, s.Ticker, date, now); v.IsDeficient {
			res.Screen["deficient"]++
			o.logger.WithFields(map[string]interface{}{
				"ticker": s.Ticker,
				"reason": v.Reason,
			}).Debug("Deficient ticker excluded")
			continue
		}
		out = append(out, s)
	}
	res.Screened = len(out)
	o.metrics.RecordDrops("screen", res.Screen)
	return out
}

// pulse drops tickers the heartbeat detector classifies as inactive
func (o *Orchestrator) pulse(candidates []contracts.Candidate, now time.Time, res *TickResult) []contracts.Candidate {
	out := make([]contracts.Candidate, 0, len(candidates))
	for _, c := range candidates {
		ok, reason := o.detector.Classify(c.Ticker, now)
		o.metrics.RecordHeartbeat(ok)
		res.Heartbeat[reason]++
		if ok {
			out = append(out, c)
		}
	}
	res.Active = len(out)

	o.logger.WithFields(map[string]interface{}{
		"input":   len(candidates),
		"active":  len(out),
		"reasons": res.Heartbeat,
	}).Info("Heartbeat filter completed")
	return out
}

func (o *Orchestrator) writeWatchlist(ctx context.Context, now time.Time, date string, scored []contracts.ScoredCandidate, scoreErr error, active []contracts.Candidate, res *TickResult) {
	n := o.cfg.Selection.WatchlistSize
	local := now.In(o.clock.Location())

	var rows []contracts.WatchlistRow
	if scoreErr == nil {
		for _, sc := range scored[:min(n, len(scored))] {
			rows = append(rows, contracts.WatchlistRow{Date: date, Ticker: sc.Ticker, Score: sc.Score, GapPct: sc.GapPct, Volume: sc.Volume, Timestamp: local})
		}
	} else {
		ranked := scoring.FallbackRank(active)
		for _, c := range ranked[:min(n, len(ranked))] {
			rows = append(rows, contracts.WatchlistRow{Date: date, Ticker: c.Ticker, GapPct: c.GapPct, Volume: c.Volume, Timestamp: local})
		}
	}
	res.Watchlist = rows
	if len(rows) == 0 {
		return
	}

	for i, r := range rows {
		o.logger.WithFields(map[string]interface{}{
			"rank":    i + 1,
			"ticker":  r.Ticker,
			"score":   r.Score,
			"gap_pct": r.GapPct,
			"volume":  r.Volume,
		}).Info("Top candidate")
	}

	if err := o.watchlist.WriteWatchlist(ctx, rows); err != nil {
		o.metrics.RecordTickError("persistence")
		o.logger.WithError(err).Error("Watchlist write failed")
	}
	if o.publisher != nil {
		o.publisher.PublishWatchlist(rows)
	}
}

func (o *Orchestrator) lookupCatalyst(ctx context.Context, ticker string) string {
	if o.catalyst == nil {
		return ""
	}
	cctx, cancel := context.WithTimeout(ctx, catalystTimeout)
	defer cancel()

	headline, err := o.catalyst.LatestHeadline(cctx, ticker)
	if err != nil {
		o.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Warn("Catalyst lookup failed")
		return ""
	}
	return headline
}

// flushPending gives a pick whose write failed on the last tick one more
// attempt before the loop exits
func (o *Orchestrator) flushPending(ctx context.Context, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending == nil {
		return
	}
	res := newTickResult(o.runID, now, o.pending.Date, contracts.PhaseClosed, contracts.SessionFor(contracts.PhaseClosed))
	o.flushPick(ctx, res)
	if !res.PickPersisted {
		o.logger.WithFields(map[string]interface{}{
			"ticker": o.pending.Ticker,
			"date":   o.pending.Date,
		}).Error("Final pick could not be persisted before shutdown")
	}
}

// flushPick writes the pending final pick; on failure it is retried next tick
func (o *Orchestrator) flushPick(ctx context.Context, res *TickResult) {
	if o.pending == nil {
		return
	}
	res.Pick = o.pending

	if err := o.picks.WritePick(ctx, *o.pending); err != nil {
		o.metrics.RecordTickError("persistence")
		o.logger.WithError(err).Error("Final pick write failed, retrying next tick")
		return
	}

	o.logger.WithFields(map[string]interface{}{
		"ticker": o.pending.Ticker,
		"mode":   o.pending.Mode,
	}).Info("Final pick persisted")
	res.PickPersisted = true
	o.pending = nil
}

func (o *Orchestrator) report(ctx context.Context, res *TickResult) {
	if o.reporter == nil {
		return
	}
	filtered := res.Filtered()
	if err := o.reporter.SaveTickReport(ctx, o.runID, res.At, string(res.Phase), filtered, res.Fetched, res.Active); err != nil {
		o.logger.WithError(err).Warn("Tick report not saved")
	}
}

func (o *Orchestrator) finish(res *TickResult, start time.Time) {
	res.Duration = time.Since(start)

	o.lastMu.Lock()
	o.last = res
	o.lastMu.Unlock()

	o.metrics.RecordTick(string(res.Phase), res.Duration)
	o.metrics.RecordStage("fetched", res.Fetched)
	o.metrics.RecordStage("enriched", res.Enriched)
	o.metrics.RecordStage("liquid", res.Liquidity.Passed)
	o.metrics.RecordStage("active", res.Active)

	o.logger.WithFields(map[string]interface{}{
		"phase":     res.Phase,
		"fetched":   res.Fetched,
		"pool":      res.Pool,
		"enriched":  res.Enriched,
		"liquid":    res.Liquidity.Passed,
		"active":    res.Active,
		"selection": res.Selection,
		"duration":  res.Duration.String(),
	}).Info("Tick completed")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
