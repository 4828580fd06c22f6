package tradeability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
)

func TestCheckSymbol(t *testing.T) {
	tests := []struct {
		ticker string
		ok     bool
		reason string
	}{
		{"AAPL", true, ""},
		{"GOOGL", true, ""},
		{"BRK.B", true, ""},
		{"ABCDW", false, ReasonWarrant},
		{"ABCDU", false, ReasonUnit},
		{"ABCDR", false, ReasonRights},
		{"ABCDF", false, ReasonOTC},
		{"ABCDQ", false, ReasonOTC},
		{"ABCDY", false, ReasonADR},
		{"ABC.WS", false, ReasonWarrant},
		{"ABC.U", false, ReasonUnit},
		{"ABC.RT", false, ReasonRights},
		{"ABC.PR", false, ReasonPreferred},
		{"BACpB", false, ReasonPreferred},
		{"ABW", true, ""}, // short symbols keep their last letter
		{"", false, ReasonInvalid},
		{"AB$C", false, ReasonInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			ok, reason := CheckSymbol(tt.ticker)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestSymbolFilter_Allowlist(t *testing.T) {
	f := NewSymbolFilter([]string{"abcdw"})

	ok, _ := f.Check("ABCDW")
	assert.True(t, ok, "allowlisted ticker skips suffix check")

	ok, reason := f.Check("XYZQW")
	assert.False(t, ok)
	assert.Equal(t, ReasonWarrant, reason)
}

func closes(start time.Time, values ...float64) []contracts.DailyBar {
	bars := make([]contracts.DailyBar, len(values))
	for i, v := range values {
		bars[i] = contracts.DailyBar{Date: start.AddDate(0, 0, i), Close: v}
	}
	return bars
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

var day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestEvaluateDeficiency(t *testing.T) {
	below30 := repeat(0.80, 30)

	tests := []struct {
		name      string
		values    []float64
		deficient bool
		reason    string
	}{
		{"30 closes below $1", below30, true, "deficient_30d_below_$1"},
		{"35 closes below $1", repeat(0.80, 35), true, "deficient_35d_below_$1"},
		{"grace 9 of 10", append(append([]float64{}, below30...), repeat(1.20, 9)...), true, "grace_period_9/10d"},
		{"grace complete", append(append([]float64{}, below30...), repeat(1.20, 10)...), false, ReasonCompliantPostGrace},
		{"29 below is compliant", append(repeat(1.5, 5), repeat(0.8, 29)...), false, ReasonCompliant},
		{"insufficient history", repeat(0.5, 29), false, ReasonInsufficientHistory},
		{"exactly $1 counts as compliant", repeat(1.00, 30), false, ReasonCompliant},
		{
			"grace interrupted restarts",
			append(append(append([]float64{}, below30...), repeat(1.2, 5)...), 0.9, 1.2, 1.2),
			true, "grace_period_2/10d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := EvaluateDeficiency(closes(day0, tt.values...), NasdaqRule)
			assert.Equal(t, tt.deficient, v.IsDeficient)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestEvaluateDeficiency_UnorderedInput(t *testing.T) {
	bars := closes(day0, append(repeat(0.8, 30), repeat(1.2, 9)...)...)
	// newest first
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	v := EvaluateDeficiency(bars, NasdaqRule)
	assert.True(t, v.IsDeficient)
	assert.Equal(t, "grace_period_9/10d", v.Reason)
}

type fakeBars struct {
	bars  []contracts.DailyBar
	err   error
	calls int
}

func (f *fakeBars) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.DailyBar, error) {
	f.calls++
	return f.bars, f.err
}

func newChecker(src BarSource, cache *state.DeficiencyCache) *DeficiencyChecker {
	cfg, _ := strategyconfig.Default()
	return NewDeficiencyChecker(cfg.Tradeability.Deficiency, src, cache, nil, logger.Nop())
}

func TestDeficiencyChecker_CachesVerdict(t *testing.T) {
	src := &fakeBars{bars: closes(day0, repeat(0.8, 35)...)}
	cache := state.NewDeficiencyCache()
	checker := newChecker(src, cache)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	v := checker.Check(context.Background(), "CCC", "2026-03-02", now)
	assert.True(t, v.IsDeficient)

	v = checker.Check(context.Background(), "CCC", "2026-03-02", now)
	assert.True(t, v.IsDeficient)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, cache.Len())
}

func TestDeficiencyChecker_TrimsToLookback(t *testing.T) {
	// 40 sub-$1 closes followed by 10 recovered closes: the 45-bar window
	// still holds 35 below then 10 above.
	src := &fakeBars{bars: closes(day0, append(repeat(0.8, 40), repeat(1.2, 10)...)...)}
	checker := newChecker(src, state.NewDeficiencyCache())

	v := checker.Check(context.Background(), "DDD", "2026-03-02", time.Now())
	assert.False(t, v.IsDeficient)
	assert.Equal(t, ReasonCompliantPostGrace, v.Reason)
}

func TestDeficiencyChecker_FetchErrorIsNotDeficient(t *testing.T) {
	src := &fakeBars{err: errors.New("timeout")}
	cache := state.NewDeficiencyCache()
	checker := newChecker(src, cache)

	v := checker.Check(context.Background(), "EEE", "2026-03-02", time.Now())
	assert.False(t, v.IsDeficient)
	assert.Equal(t, ReasonCheckError, v.Reason)
	assert.Zero(t, cache.Len(), "errors are retried next tick")
}

func TestDeficiencyChecker_Disabled(t *testing.T) {
	cfg, _ := strategyconfig.Default()
	cfg.Tradeability.Deficiency.Enabled = false
	src := &fakeBars{}
	checker := NewDeficiencyChecker(cfg.Tradeability.Deficiency, src, state.NewDeficiencyCache(), nil, logger.Nop())

	v := checker.Check(context.Background(), "AAA", "2026-03-02", time.Now())
	assert.False(t, v.IsDeficient)
	assert.Zero(t, src.calls)
}

type fakeRef struct {
	details map[string]*contracts.TickerDetails
}

func (f *fakeRef) TickerDetails(ctx context.Context, ticker string) (*contracts.TickerDetails, error) {
	d, ok := f.details[ticker]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func TestTypeChecker(t *testing.T) {
	ref := &fakeRef{details: map[string]*contracts.TickerDetails{
		"AAA": {Ticker: "AAA", Market: "stocks", Type: "CS", Active: true},
		"BBB": {Ticker: "BBB", Market: "stocks", Type: "ADRC", Active: true},
		"CCC": {Ticker: "CCC", Market: "otc", Type: "CS", Active: true},
		"DDD": {Ticker: "DDD", Market: "stocks", Type: "CS", Active: false},
	}}
	cfg := strategyconfig.TypeCheck{Enabled: true, ExcludedTypes: []string{"ADRC", "WARRANT"}}
	checker := NewTypeChecker(cfg, ref, nil, logger.Nop())
	ctx := context.Background()

	ok, _ := checker.Check(ctx, "AAA")
	assert.True(t, ok)

	ok, reason := checker.Check(ctx, "BBB")
	assert.False(t, ok)
	assert.Equal(t, "type_adrc", reason)

	_, reason = checker.Check(ctx, "CCC")
	assert.Equal(t, "type_otc", reason)

	_, reason = checker.Check(ctx, "DDD")
	assert.Equal(t, "type_inactive", reason)

	ok, _ = checker.Check(ctx, "ZZZ")
	assert.True(t, ok, "lookup failure passes")
}

func TestTypeChecker_Disabled(t *testing.T) {
	checker := NewTypeChecker(strategyconfig.TypeCheck{Enabled: false}, nil, nil, logger.Nop())
	ok, _ := checker.Check(context.Background(), "ABCDY")
	require.True(t, ok)
}
