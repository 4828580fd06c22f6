package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
)

// Activity reports heartbeat status without side effects
type Activity interface {
	Evaluate(ticker string, now time.Time) (bool, string)
}

// Scorer computes the composite ranking score
// ⭐ SSOT: 복합 점수 계산은 여기서만
type Scorer struct {
	history  *state.SnapshotHistory
	activity Activity
	clock    *session.Clock
	cfg      strategyconfig.Scoring
	logger   *logger.Logger
}

// NewScorer creates a scorer
func NewScorer(cfg strategyconfig.Scoring, history *state.SnapshotHistory, activity Activity, clock *session.Clock, log *logger.Logger) *Scorer {
	return &Scorer{
		history:  history,
		activity: activity,
		clock:    clock,
		cfg:      cfg,
		logger:   log,
	}
}

// Score returns the component breakdown for one ticker at now.
// The total is Breakdown.Total(); it is not clamped.
func (s *Scorer) Score(ticker string, gapPct, price float64, volume int64, now time.Time) (contracts.ScoreBreakdown, error) {
	active, _ := s.activity.Evaluate(ticker, now)
	return s.compose(ticker, gapPct, volume, active, now)
}

func (s *Scorer) compose(ticker string, gapPct float64, volume int64, active bool, now time.Time) (contracts.ScoreBreakdown, error) {
	w := s.cfg.Weights
	window := time.Duration(s.cfg.DeltaWindowMin) * time.Minute
	entries := s.windowEntries(ticker, now, window)

	b := contracts.ScoreBreakdown{
		Gap:        gapPct * s.DecayFactor(now) * w.Gap,
		Delta:      IntradayDelta(entries) * w.Delta,
		VolumeRate: SharesPerMinute(entries) / 1000 * w.VolumeRate,
		AbsVolume:  AbsoluteVolume(volume, w.AbsVolumeScale, w.AbsVolumeCap),
	}
	if active {
		b.Heartbeat = w.HeartbeatBonus
	}

	for name, v := range map[string]float64{
		"gap": b.Gap, "delta": b.Delta, "volume_rate": b.VolumeRate, "abs_volume": b.AbsVolume,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return b, fmt.Errorf("%w: %s component of %s is %v", contracts.ErrScoring, name, ticker, v)
		}
	}
	return b, nil
}

// DecayFactor is 1.0 before the open, then loses DecayPerHour per
// elapsed hour, floored at DecayFloor
func (s *Scorer) DecayFactor(now time.Time) float64 {
	if !s.clock.IsRegularSession(now) {
		return 1.0
	}
	return math.Max(s.cfg.DecayFloor, 1.0-s.cfg.DecayPerHour*s.clock.HoursSinceOpen(now))
}

func (s *Scorer) windowEntries(ticker string, now time.Time, window time.Duration) []contracts.HistoryEntry {
	cutoff := now.Add(-window)
	var out []contracts.HistoryEntry
	for _, e := range s.history.History(ticker) {
		if !e.At.Before(cutoff) && !e.At.After(now) {
			out = append(out, e)
		}
	}
	return out
}

// IntradayDelta is the percent change from oldest to newest entry
func IntradayDelta(entries []contracts.HistoryEntry) float64 {
	if len(entries) < 2 || entries[0].Price <= 0 {
		return 0
	}
	first, last := entries[0], entries[len(entries)-1]
	return (last.Price - first.Price) / first.Price * 100
}

// SharesPerMinute is cumulative volume growth per elapsed minute (>= 0)
func SharesPerMinute(entries []contracts.HistoryEntry) float64 {
	if len(entries) < 2 {
		return 0
	}
	first, last := entries[0], entries[len(entries)-1]
	minutes := last.At.Sub(first.At).Minutes()
	if minutes <= 0 {
		return 0
	}
	return math.Max(0, float64(last.Volume-first.Volume)/minutes)
}

// AbsoluteVolume is min(log10(volume in millions) × scale, ceiling), 0 for no volume
func AbsoluteVolume(volume int64, scale, ceiling float64) float64 {
	volM := float64(volume) / 1_000_000
	if volM <= 0 {
		return 0
	}
	return math.Min(math.Log10(volM)*scale, ceiling)
}

// ScoreAll scores a batch, best first. Any component failure or panic
// fails the whole batch with ErrScoring so selection can fall back.
func (s *Scorer) ScoreAll(candidates []contracts.Candidate, now time.Time) (scored []contracts.ScoredCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			scored = nil
			err = fmt.Errorf("%w: panic: %v", contracts.ErrScoring, r)
		}
	}()

	scored = make([]contracts.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		active, reason := s.activity.Evaluate(c.Ticker, now)
		b, err := s.compose(c.Ticker, c.GapPct, c.Volume, active, now)
		if err != nil {
			return nil, err
		}
		scored = append(scored, contracts.ScoredCandidate{
			Candidate:       c,
			Score:           b.Total(),
			Breakdown:       b,
			HeartbeatActive: active,
			HeartbeatReason: reason,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Ticker < scored[j].Ticker
	})

	if len(scored) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"count":      len(scored),
			"top_ticker": scored[0].Ticker,
			"top_score":  scored[0].Score,
			"decay":      s.DecayFactor(now),
		}).Info("Scoring completed")
	}
	return scored, nil
}

// FallbackRank orders candidates by RVOL, then dollar volume, then gap,
// all descending. Used when scoring fails.
func FallbackRank(candidates []contracts.Candidate) []contracts.Candidate {
	out := make([]contracts.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RVOL != b.RVOL {
			return a.RVOL > b.RVOL
		}
		if a.DollarVolume() != b.DollarVolume() {
			return a.DollarVolume() > b.DollarVolume()
		}
		if a.GapPct != b.GapPct {
			return a.GapPct > b.GapPct
		}
		return a.Ticker < b.Ticker
	})
	return out
}
