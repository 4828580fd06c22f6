package orchestrator

import (
	"sort"
	"strings"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/enrich"
	"github.com/wonny/gapscan/internal/heartbeat"
	"github.com/wonny/gapscan/internal/liquidity"
)

// TickResult is the stage-by-stage accounting of one tick
type TickResult struct {
	RunID   string            `json:"run_id"`
	At      time.Time         `json:"at"`
	Date    string            `json:"date"`
	Phase   contracts.Phase   `json:"phase"`
	Session contracts.Session `json:"session"`

	Fetched    int            `json:"fetched"`
	Invalid    int            `json:"invalid"`
	Normalized int            `json:"normalized"`
	Rejected   map[string]int `json:"rejected"` // symbol structure
	Pool       int            `json:"pool"`
	Screen     map[string]int `json:"screen"` // reference type, deficiency
	Screened   int            `json:"screened"`

	Enriched     int              `json:"enriched"`
	EnrichFailed int              `json:"enrich_failed"`
	Liquidity    liquidity.Report `json:"liquidity"`
	Heartbeat    map[string]int   `json:"heartbeat"`
	Active       int              `json:"active"`

	ScoringError string                   `json:"scoring_error,omitempty"`
	Watchlist    []contracts.WatchlistRow `json:"watchlist"`

	Selection     contracts.SelectionState   `json:"selection"`
	Pick          *contracts.FinalPickRecord `json:"pick,omitempty"`
	PickPersisted bool                       `json:"pick_persisted"`

	Duration time.Duration `json:"duration"`
}

func newTickResult(runID string, now time.Time, date string, phase contracts.Phase, sess contracts.Session) *TickResult {
	return &TickResult{
		RunID:     runID,
		At:        now,
		Date:      date,
		Phase:     phase,
		Session:   sess,
		Rejected:  make(map[string]int),
		Screen:    make(map[string]int),
		Heartbeat: make(map[string]int),
	}
}

// Filtered merges every drop reason of the tick
func (r *TickResult) Filtered() map[string]int {
	out := make(map[string]int)
	for k, v := range r.Rejected {
		out[k] += v
	}
	for k, v := range r.Screen {
		out[k] += v
	}
	for k, v := range r.Liquidity.Dropped {
		out[k] += v
	}
	if r.EnrichFailed > 0 {
		out["enrichment_failed"] += r.EnrichFailed
	}
	if r.Invalid > 0 {
		out["invalid_snapshot"] += r.Invalid
	}
	for k, v := range r.Heartbeat {
		if inactive(k) {
			out["heartbeat_"+k] += v
		}
	}
	return out
}

func inactive(reason string) bool {
	return reason != heartbeat.ReasonFirstScanPass && !strings.HasPrefix(reason, "active_")
}

// Status is the engine view served by the API
type Status struct {
	RunID     string                     `json:"run_id"`
	Date      string                     `json:"date"`
	Phase     contracts.Phase            `json:"phase"`
	Selection contracts.SelectionState   `json:"selection"`
	Pick      *contracts.FinalPickRecord `json:"pick,omitempty"`
	Tickers   int                        `json:"tickers_tracked"`
	Anchors   int                        `json:"open_anchors"`
	LastTick  *TickResult                `json:"last_tick,omitempty"`
}

// Status returns a snapshot of engine state
func (o *Orchestrator) Status() Status {
	o.lastMu.RLock()
	defer o.lastMu.RUnlock()

	tickers, anchors := o.state.History.Stats()
	return Status{
		RunID:     o.runID,
		Date:      o.state.Date(),
		Phase:     o.clock.Phase(o.clock.Now()),
		Selection: o.selector.State(),
		Pick:      o.selector.Pick(),
		Tickers:   tickers,
		Anchors:   anchors,
		LastTick:  o.last,
	}
}

// LastWatchlist returns the most recent tick's top-N
func (o *Orchestrator) LastWatchlist() []contracts.WatchlistRow {
	o.lastMu.RLock()
	defer o.lastMu.RUnlock()

	if o.last == nil {
		return nil
	}
	return append([]contracts.WatchlistRow(nil), o.last.Watchlist...)
}

// preRank keeps the n snapshots with the largest prev-close gap
func preRank(snaps []contracts.Snapshot, n int) []contracts.Snapshot {
	out := make([]contracts.Snapshot, len(snaps))
	copy(out, snaps)
	sort.SliceStable(out, func(i, j int) bool {
		gi, gj := enrich.RawGap(out[i]), enrich.RawGap(out[j])
		if gi != gj {
			return gi > gj
		}
		return out[i].Ticker < out[j].Ticker
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
