package heartbeat

import (
	"fmt"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
)

// Reference labels used in reason codes
const (
	RefOpen        = "open_930"
	RefWindowStart = "window_start"
)

// Fixed reason codes
const (
	ReasonFirstScanPass    = "first_scan_pass"
	ReasonPriceFrozen      = "price_frozen"
	ReasonInvalidReference = "invalid_reference"
)

// Detector classifies a ticker as actively moving up or stale.
// It is a directional liveness filter: any downtrend is inactive.
// ⭐ SSOT: heartbeat 판정은 여기서만
type Detector struct {
	history         *state.SnapshotHistory
	clock           *session.Clock
	minPctChange    float64
	minVolumeGrowth int64
	logger          *logger.Logger
}

// NewDetector creates a detector reading the engine's history
func NewDetector(cfg strategyconfig.Heartbeat, history *state.SnapshotHistory, clock *session.Clock, log *logger.Logger) *Detector {
	return &Detector{
		history:         history,
		clock:           clock,
		minPctChange:    cfg.MinPctChange,
		minVolumeGrowth: cfg.MinVolumeGrowth,
		logger:          log,
	}
}

// Classify returns (active, reason) for ticker at now and logs rejections
func (d *Detector) Classify(ticker string, now time.Time) (bool, string) {
	active, reason := d.Evaluate(ticker, now)
	if !active {
		d.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"reason": reason,
		}).Debug("Heartbeat inactive")
	}
	return active, reason
}

// Evaluate is Classify without logging
func (d *Detector) Evaluate(ticker string, now time.Time) (bool, string) {
	entries := d.history.History(ticker)
	if len(entries) < 2 {
		return true, ReasonFirstScanPass
	}

	lookback := d.clock.HeartbeatLookback(now)
	cutoff := now.Add(-lookback)

	window := make([]contracts.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if !e.At.Before(cutoff) && !e.At.After(now) {
			window = append(window, e)
		}
	}

	if len(window) < 2 {
		if !d.clock.IsTightLookback(lookback) {
			return false, fmt.Sprintf("no_data_in_last_%dmin", int(lookback.Minutes()))
		}
		// 장 시작 직후: 이력이 좁아진 윈도우보다 앞섬 → 최근 2건 사용
		window = entries[len(entries)-2:]
	}

	ref, label := window[0].Price, RefWindowStart
	if anchor, ok := d.history.OpenAnchor(ticker); ok && d.clock.IsRegularSession(now) {
		ref, label = anchor, RefOpen
	}
	if ref <= 0 {
		return false, ReasonInvalidReference
	}

	oldest, newest := window[0], window[len(window)-1]
	pctChange := (newest.Price - ref) / ref * 100
	volumeGrowth := newest.Volume - oldest.Volume

	if frozen(window) {
		return false, ReasonPriceFrozen
	}
	if pctChange < 0 {
		return false, "downtrending_vs_" + label
	}
	if pctChange < d.minPctChange && volumeGrowth < d.minVolumeGrowth {
		return false, "insufficient_movement_vs_" + label
	}
	return true, "active_vs_" + label
}

func frozen(window []contracts.HistoryEntry) bool {
	for _, e := range window[1:] {
		if e.Price != window[0].Price {
			return false
		}
	}
	return true
}
