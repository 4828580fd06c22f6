package liquidity

import (
	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
)

// Drop reasons
const (
	ReasonMissingPrices     = "missing_prices"
	ReasonPriceFloor        = "price_floor"
	ReasonShareFloor        = "share_floor"
	ReasonAvgVolumeFloor    = "avg_volume_floor"
	ReasonDollarVolumeFloor = "dollar_volume_floor"
)

// Gate applies session-dependent liquidity thresholds
// ⭐ SSOT: 유동성 필터는 여기서만
type Gate struct {
	premarket strategyconfig.Thresholds
	regular   strategyconfig.Thresholds
	logger    *logger.Logger
}

// Report is the per-tick drop accounting.
// Passed + sum(Dropped) == Input.
type Report struct {
	Session contracts.Session `json:"session"`
	Input   int               `json:"input"`
	Passed  int               `json:"passed"`
	Dropped map[string]int    `json:"dropped"`
}

// DroppedTotal sums every drop reason
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// NewGate resolves both sessions' thresholds once
func NewGate(cfg strategyconfig.Liquidity, log *logger.Logger) *Gate {
	return &Gate{
		premarket: cfg.For(string(contracts.SessionPremarket)),
		regular:   cfg.For(string(contracts.SessionRegular)),
		logger:    log,
	}
}

// Thresholds returns the effective thresholds for a session
func (g *Gate) Thresholds(session contracts.Session) strategyconfig.Thresholds {
	if session == contracts.SessionPremarket {
		return g.premarket
	}
	return g.regular
}

// Passes checks one candidate. The first failing threshold is the reason.
func (g *Gate) Passes(c contracts.Candidate, session contracts.Session) (bool, string) {
	th := g.Thresholds(session)

	checkPrices := true
	if !c.HasPrices() {
		if th.Requires() {
			return false, ReasonMissingPrices
		}
		// 가격 없이 통과 허용: 가격 기반 조건은 건너뜀
		checkPrices = false
	}

	if checkPrices && c.LastPrice < th.MinPrice {
		return false, ReasonPriceFloor
	}
	if c.Volume < th.MinVolume {
		return false, ReasonShareFloor
	}
	if c.AvgVolume < float64(th.MinAvgVolume) {
		return false, ReasonAvgVolumeFloor
	}
	if checkPrices && c.DollarVolume() < th.MinDollarVolume {
		return false, ReasonDollarVolumeFloor
	}
	return true, ""
}

// Filter keeps passing candidates (order preserved) and reports drops
func (g *Gate) Filter(candidates []contracts.Candidate, session contracts.Session) ([]contracts.Candidate, Report) {
	passed := make([]contracts.Candidate, 0, len(candidates))
	report := Report{
		Session: session,
		Input:   len(candidates),
		Dropped: make(map[string]int),
	}

	for _, c := range candidates {
		ok, reason := g.Passes(c, session)
		if !ok {
			report.Dropped[reason]++
			continue
		}
		passed = append(passed, c)
	}
	report.Passed = len(passed)

	th := g.Thresholds(session)
	entry := g.logger.WithFields(map[string]interface{}{
		"session":     session,
		"total_input": report.Input,
		"passed":      report.Passed,
		"dropped":     report.Dropped,
		"min_price":   th.MinPrice,
		"min_volume":  th.MinVolume,
	})
	if report.Input > 0 && report.Passed == 0 {
		// 빈 결과의 주원인: 세션과 맞지 않는 임계값
		entry.Warn("Liquidity gate dropped every candidate")
	} else {
		entry.Info("Liquidity gate completed")
	}

	return passed, report
}
