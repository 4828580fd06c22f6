package session

import (
	"fmt"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/strategyconfig"
)

// Clock maps wall-clock time to a trading phase and scan cadence.
// Every method is a pure function of its argument and the config,
// except Now.
// ⭐ SSOT: 세션 판정은 여기서만
type Clock struct {
	loc *time.Location
	now func() time.Time

	premarketStart time.Duration
	premarketEnd   time.Duration
	open           time.Duration
	close          time.Duration
	windowStart    time.Duration
	windowEnd      time.Duration
	approachStart  time.Duration
	finalStart     time.Duration
	middayCutoff   time.Duration

	cadence   strategyconfig.Cadence
	heartbeat strategyconfig.Heartbeat
}

// New builds a Clock from a validated strategy config
func New(cfg *strategyconfig.Config) (*Clock, error) {
	loc, err := time.LoadLocation(cfg.Meta.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone: %v", contracts.ErrConfig, err)
	}

	c := &Clock{
		loc:       loc,
		now:       time.Now,
		cadence:   cfg.Session.Cadence,
		heartbeat: cfg.Heartbeat,
	}

	fields := []struct {
		dst *time.Duration
		src string
	}{
		{&c.premarketStart, cfg.Session.PremarketStart},
		{&c.premarketEnd, cfg.Session.PremarketEnd},
		{&c.open, cfg.Session.MarketOpen},
		{&c.close, cfg.Session.MarketClose},
		{&c.windowStart, cfg.Selection.WindowStart},
		{&c.windowEnd, cfg.Selection.WindowEnd},
		{&c.approachStart, cfg.Session.Cadence.ApproachStart},
		{&c.finalStart, cfg.Session.Cadence.FinalStart},
		{&c.middayCutoff, cfg.Heartbeat.MiddayCutoff},
	}
	for _, f := range fields {
		m, err := strategyconfig.ParseClock(f.src)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", contracts.ErrConfig, f.src, err)
		}
		*f.dst = time.Duration(m) * time.Minute
	}

	// 프리마켓은 명시적 확장 없이는 정규장 시작을 넘지 않음
	if !cfg.Session.ExtendPremarket && c.premarketEnd > c.open {
		c.premarketEnd = c.open
	}

	return c, nil
}

// WithNow replaces the time source (tests, replays)
func (c *Clock) WithNow(now func() time.Time) *Clock {
	c.now = now
	return c
}

// Now returns the current time in exchange local time
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the exchange time zone
func (c *Clock) Location() *time.Location {
	return c.loc
}

// timeOfDay uses wall-clock fields so DST days keep 04:00 at 04:00
func (c *Clock) timeOfDay(t time.Time) (time.Duration, bool) {
	lt := t.In(c.loc)
	if lt.Weekday() == time.Saturday || lt.Weekday() == time.Sunday {
		return 0, false
	}
	// TODO: exchange holiday calendar (NYSE full-day closures and 13:00 early closes)
	return time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second, true
}

// Phase returns the trading phase for t
func (c *Clock) Phase(t time.Time) contracts.Phase {
	tod, tradingDay := c.timeOfDay(t)
	switch {
	case !tradingDay:
		return contracts.PhaseClosed
	case tod >= c.windowStart && tod < c.windowEnd:
		return contracts.PhaseOpenSelection
	case tod >= c.premarketStart && tod < c.premarketEnd:
		return contracts.PhasePremarket
	case tod >= c.open && tod < c.close:
		return contracts.PhaseRegular
	default:
		return contracts.PhaseClosed
	}
}

// CadenceMinutes is the sleep between ticks at t:
// coarse early, finer as the open approaches.
func (c *Clock) CadenceMinutes(t time.Time) int {
	tod, _ := c.timeOfDay(t)
	switch {
	case tod < c.approachStart:
		return c.cadence.EarlyMinutes
	case tod < c.finalStart:
		return c.cadence.ApproachMinutes
	default:
		return c.cadence.FinalMinutes
	}
}

// IsRegularSession reports whether the market is open at t
func (c *Clock) IsRegularSession(t time.Time) bool {
	tod, tradingDay := c.timeOfDay(t)
	return tradingDay && tod >= c.open && tod < c.close
}

// InSelectionWindow reports whether t is inside [window_start, window_end)
func (c *Clock) InSelectionWindow(t time.Time) bool {
	tod, tradingDay := c.timeOfDay(t)
	return tradingDay && tod >= c.windowStart && tod < c.windowEnd
}

// SelectionWindowPassed reports whether t is at or past window_end on a trading day
func (c *Clock) SelectionWindowPassed(t time.Time) bool {
	tod, tradingDay := c.timeOfDay(t)
	return tradingDay && tod >= c.windowEnd
}

// SessionOver reports whether no further scanning can happen on t's date:
// a non-trading day, or at or past the close
func (c *Clock) SessionOver(t time.Time) bool {
	tod, tradingDay := c.timeOfDay(t)
	return !tradingDay || tod >= c.close
}

// BeforeSelectionWindow reports whether the window has not started yet
func (c *Clock) BeforeSelectionWindow(t time.Time) bool {
	tod, tradingDay := c.timeOfDay(t)
	return !tradingDay || tod < c.windowStart
}

// TradingDate returns the exchange-local date key (2006-01-02)
func (c *Clock) TradingDate(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// MarketOpen returns the open instant on t's exchange-local date
func (c *Clock) MarketOpen(t time.Time) time.Time {
	return c.at(t, c.open)
}

// PremarketStart returns the premarket start instant on t's date
func (c *Clock) PremarketStart(t time.Time) time.Time {
	return c.at(t, c.premarketStart)
}

func (c *Clock) at(t time.Time, offset time.Duration) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(),
		int(offset/time.Hour), int(offset%time.Hour/time.Minute), 0, 0, c.loc)
}

// HoursSinceOpen is fractional hours elapsed since the open, 0 before it
func (c *Clock) HoursSinceOpen(t time.Time) float64 {
	h := t.Sub(c.MarketOpen(t)).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// HeartbeatLookback returns the adaptive staleness window at t:
// wide before the open, tight from the open to midday, wide again after.
func (c *Clock) HeartbeatLookback(t time.Time) time.Duration {
	tod, _ := c.timeOfDay(t)
	switch {
	case tod < c.open:
		return time.Duration(c.heartbeat.PreOpenLookbackMin) * time.Minute
	case tod < c.middayCutoff:
		return time.Duration(c.heartbeat.OpenLookbackMin) * time.Minute
	default:
		return time.Duration(c.heartbeat.AfternoonLookbackMin) * time.Minute
	}
}

// IsTightLookback reports whether lookback is the open-to-midday window
func (c *Clock) IsTightLookback(lookback time.Duration) bool {
	return lookback == time.Duration(c.heartbeat.OpenLookbackMin)*time.Minute
}
