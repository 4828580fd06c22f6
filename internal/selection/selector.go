package selection

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/scoring"
	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/pkg/logger"
)

// Selector resolves the once-per-day final pick.
// AWAITING → PICKED_NORMAL | PICKED_LATE | PICKED_FALLBACK; a picked
// state is terminal until Reset.
// ⭐ SSOT: 최종 픽 상태 전이는 여기서만
type Selector struct {
	clock  *session.Clock
	logger *logger.Logger

	mu    sync.Mutex
	date  string
	state contracts.SelectionState
	pick  *contracts.FinalPickRecord
}

// NewSelector creates a selector in AWAITING
func NewSelector(clock *session.Clock, log *logger.Logger) *Selector {
	return &Selector{
		clock:  clock,
		logger: log,
		state:  contracts.StateAwaiting,
	}
}

// Reset starts a new trading day
func (s *Selector) Reset(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.date = date
	s.state = contracts.StateAwaiting
	s.pick = nil
}

// Restore marks the day as already picked (process restart after a
// persisted pick)
func (s *Selector) Restore(rec contracts.FinalPickRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.date = rec.Date
	s.state = rec.Mode
	if !s.state.Picked() {
		s.state = contracts.StatePickedNormal
	}
	s.pick = &rec
}

// State returns the current selection state
func (s *Selector) State() contracts.SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Pick returns the day's final pick, nil while awaiting
func (s *Selector) Pick() *contracts.FinalPickRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pick == nil {
		return nil
	}
	p := *s.pick
	return &p
}

// Decide returns the final pick when this tick should make it, else nil.
// scored is best-first; candidates feed the fallback ordering when
// scoreErr is non-nil.
func (s *Selector) Decide(now time.Time, scored []contracts.ScoredCandidate, scoreErr error, candidates []contracts.Candidate) *contracts.FinalPickRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Picked() {
		return nil
	}
	if s.clock.BeforeSelectionWindow(now) {
		return nil
	}

	mode := contracts.StatePickedNormal
	if s.clock.SelectionWindowPassed(now) {
		mode = contracts.StatePickedLate
	}

	var rec *contracts.FinalPickRecord
	if scoreErr != nil {
		rec = s.fallback(now, scoreErr, candidates, mode)
	} else if len(scored) > 0 {
		rec = s.record(now, scored[0].Candidate, scored[0].Score, mode, rationale(scored[0], mode))
	}

	if rec == nil {
		s.logger.WithFields(map[string]interface{}{
			"mode":       mode,
			"candidates": len(candidates),
		}).Warn("No candidate for final pick, still awaiting")
		return nil
	}

	s.state = rec.Mode
	s.pick = rec

	s.logger.WithFields(map[string]interface{}{
		"ticker":    rec.Ticker,
		"score":     rec.Score,
		"mode":      rec.Mode,
		"rationale": rec.Rationale,
	}).Info("Final pick made")

	out := *rec
	return &out
}

func (s *Selector) fallback(now time.Time, scoreErr error, candidates []contracts.Candidate, mode contracts.SelectionState) *contracts.FinalPickRecord {
	ranked := scoring.FallbackRank(candidates)
	if len(ranked) == 0 {
		return nil
	}

	s.logger.WithError(scoreErr).Warn("Scoring unavailable, degraded-mode pick")

	why := fmt.Sprintf("fallback: scoring unavailable (%v); ranked by rvol, dollar volume, gap", scoreErr)
	if mode == contracts.StatePickedLate {
		why += "; late: selection window missed"
	}
	return s.record(now, ranked[0], 0, contracts.StatePickedFallback, why)
}

func (s *Selector) record(now time.Time, c contracts.Candidate, score float64, mode contracts.SelectionState, why string) *contracts.FinalPickRecord {
	local := now.In(s.clock.Location())
	return &contracts.FinalPickRecord{
		Date:          s.clock.TradingDate(now),
		Time:          local.Format("15:04:05"),
		Ticker:        c.Ticker,
		GapPct:        c.GapPct,
		RVOL:          c.RVOL,
		ATRStretch:    c.ATRStretch,
		PremarketHigh: c.PremarketHigh,
		OpenPrice:     c.OpenPrice,
		Score:         score,
		IsFinal:       true,
		Rationale:     why,
		Mode:          mode,
	}
}

func rationale(sc contracts.ScoredCandidate, mode contracts.SelectionState) string {
	b := sc.Breakdown
	parts := []string{
		fmt.Sprintf("gap=%.2f", b.Gap),
		fmt.Sprintf("delta=%.2f", b.Delta),
		fmt.Sprintf("vol_rate=%.2f", b.VolumeRate),
		fmt.Sprintf("abs_vol=%.2f", b.AbsVolume),
		fmt.Sprintf("heartbeat=%.0f (%s)", b.Heartbeat, sc.HeartbeatReason),
	}
	why := "top composite score: " + strings.Join(parts, ", ")
	if mode == contracts.StatePickedLate {
		why += "; late: selection window missed"
	}
	return why
}
