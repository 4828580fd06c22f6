package tradeability

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
	"github.com/wonny/gapscan/pkg/redis"
)

// Deficiency verdict reasons
const (
	ReasonCompliant           = "compliant"
	ReasonCompliantPostGrace  = "compliant_post_grace"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonCheckError          = "check_error"
	ReasonDisabled            = "disabled"
)

// Rule is the minimum-bid-price rule
type Rule struct {
	MinClose    float64
	BelowStreak int // consecutive closes below MinClose that make a ticker deficient
	GraceDays   int // consecutive closes at/above MinClose that clear it
}

// NasdaqRule is the $1 / 30-day / 10-day rule
var NasdaqRule = Rule{MinClose: 1.0, BelowStreak: 30, GraceDays: 10}

// EvaluateDeficiency runs the deficiency state machine over daily closes.
// Bars may be in any order; fewer than BelowStreak bars is never deficient.
func EvaluateDeficiency(bars []contracts.DailyBar, rule Rule) contracts.DeficiencyVerdict {
	if len(bars) < rule.BelowStreak {
		return contracts.DeficiencyVerdict{IsDeficient: false, Reason: ReasonInsufficientHistory}
	}

	sorted := make([]contracts.DailyBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	deficient, recovered := false, false
	below, above := 0, 0

	for _, b := range sorted {
		if b.Close < rule.MinClose {
			below++
			above = 0
			recovered = false
			if below >= rule.BelowStreak {
				deficient = true
			}
			continue
		}

		above++
		below = 0
		if deficient && above >= rule.GraceDays {
			deficient = false
			recovered = true
		}
	}

	floor := strconv.FormatFloat(rule.MinClose, 'f', -1, 64)
	switch {
	case deficient && above > 0:
		return contracts.DeficiencyVerdict{
			IsDeficient: true,
			Reason:      fmt.Sprintf("grace_period_%d/%dd", above, rule.GraceDays),
		}
	case deficient:
		return contracts.DeficiencyVerdict{
			IsDeficient: true,
			Reason:      fmt.Sprintf("deficient_%dd_below_$%s", below, floor),
		}
	case recovered:
		return contracts.DeficiencyVerdict{IsDeficient: false, Reason: ReasonCompliantPostGrace}
	default:
		return contracts.DeficiencyVerdict{IsDeficient: false, Reason: ReasonCompliant}
	}
}

// BarSource is the slice of the provider the checker needs
type BarSource interface {
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.DailyBar, error)
}

// DeficiencyChecker evaluates and caches verdicts per ticker.
// Fetch errors default to not deficient and are not cached.
type DeficiencyChecker struct {
	bars     BarSource
	cache    *state.DeficiencyCache
	shared   *redis.Cache
	rule     Rule
	lookback int
	enabled  bool
	logger   *logger.Logger
}

// NewDeficiencyChecker creates a checker over the engine's verdict cache.
// shared may be nil or disabled.
func NewDeficiencyChecker(cfg strategyconfig.Deficiency, bars BarSource, cache *state.DeficiencyCache, shared *redis.Cache, log *logger.Logger) *DeficiencyChecker {
	return &DeficiencyChecker{
		bars:     bars,
		cache:    cache,
		shared:   shared,
		rule:     Rule{MinClose: cfg.MinClose, BelowStreak: cfg.BelowStreak, GraceDays: cfg.GraceDays},
		lookback: cfg.LookbackDays,
		enabled:  cfg.Enabled,
		logger:   log,
	}
}

// Check returns the verdict for ticker as of the trading date of now.
// Only closes before date are considered.
func (d *DeficiencyChecker) Check(ctx context.Context, ticker, date string, now time.Time) contracts.DeficiencyVerdict {
	if !d.enabled {
		return contracts.DeficiencyVerdict{Reason: ReasonDisabled}
	}

	if v, ok := d.cache.Get(ticker); ok {
		return v
	}

	key := redis.DeficiencyKey(date, ticker)
	if d.shared != nil {
		var v contracts.DeficiencyVerdict
		if found, err := d.shared.Get(ctx, key, &v); err == nil && found {
			d.cache.Set(ticker, v)
			return v
		}
	}

	// 거래일 lookback을 달력일로 환산 (주말/휴일 여유)
	from := now.AddDate(0, 0, -(d.lookback*7/5 + 10))
	to := now.AddDate(0, 0, -1)

	bars, err := d.bars.DailyBars(ctx, ticker, from, to)
	if err != nil {
		d.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Warn("Deficiency check failed, treating as not deficient")
		return contracts.DeficiencyVerdict{IsDeficient: false, Reason: ReasonCheckError}
	}

	if len(bars) > d.lookback {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
		bars = bars[len(bars)-d.lookback:]
	}

	v := EvaluateDeficiency(bars, d.rule)
	d.cache.Set(ticker, v)
	if d.shared != nil {
		if err := d.shared.Set(ctx, key, v, redis.TTLDaily); err != nil {
			d.logger.WithError(err).Debug("Deficiency verdict not shared")
		}
	}

	if v.IsDeficient {
		d.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"reason": v.Reason,
		}).Debug("Ticker deficient")
	}
	return v
}
