package heartbeat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/internal/state"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/logger"
)

var ny, _ = time.LoadLocation("America/New_York")

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, ny)
}

type obs struct {
	at     time.Time
	price  float64
	volume int64
}

func setup(t *testing.T, ticker string, points []obs) (*Detector, *state.SnapshotHistory) {
	t.Helper()
	cfg, err := strategyconfig.Default()
	require.NoError(t, err)
	clock, err := session.New(cfg)
	require.NoError(t, err)

	h := state.NewSnapshotHistory(5)
	for _, p := range points {
		require.True(t, h.Record(ticker, p.price, p.volume, p.at))
	}
	return NewDetector(cfg.Heartbeat, h, clock, logger.Nop()), h
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		points []obs
		now    time.Time
		active bool
		reason string
	}{
		{
			name:   "single observation passes",
			points: []obs{{at(8, 0), 10, 1000}},
			now:    at(8, 0),
			active: true, reason: ReasonFirstScanPass,
		},
		{
			name:   "premarket active",
			points: []obs{{at(8, 0), 10, 1000}, {at(8, 20), 10.5, 5000}},
			now:    at(8, 20),
			active: true, reason: "active_vs_window_start",
		},
		{
			name:   "frozen",
			points: []obs{{at(8, 0), 10, 1000}, {at(8, 10), 10, 90_000}, {at(8, 20), 10, 200_000}},
			now:    at(8, 20),
			active: false, reason: ReasonPriceFrozen,
		},
		{
			name:   "downtrend ignores volume",
			points: []obs{{at(8, 0), 20, 100}, {at(8, 20), 19, 10_000_000}},
			now:    at(8, 20),
			active: false, reason: "downtrending_vs_window_start",
		},
		{
			name:   "insufficient movement",
			points: []obs{{at(8, 0), 10, 1000}, {at(8, 20), 10.01, 1500}},
			now:    at(8, 20),
			active: false, reason: "insufficient_movement_vs_window_start",
		},
		{
			name:   "small move rescued by volume",
			points: []obs{{at(8, 0), 10, 1000}, {at(8, 20), 10.01, 50_000}},
			now:    at(8, 20),
			active: true, reason: "active_vs_window_start",
		},
		{
			name:   "no data in wide window",
			points: []obs{{at(7, 0), 10, 1000}, {at(7, 10), 11, 5000}},
			now:    at(8, 0),
			active: false, reason: "no_data_in_last_30min",
		},
		{
			name:   "tight window falls back to last two entries",
			points: []obs{{at(9, 0), 10, 1000}, {at(9, 15), 11, 50_000}},
			now:    at(9, 40),
			active: true, reason: "active_vs_window_start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := setup(t, "AAA", tt.points)
			active, reason := d.Classify("AAA", tt.now)
			assert.Equal(t, tt.active, active)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestClassify_OpenAnchorReference(t *testing.T) {
	points := []obs{{at(9, 35), 11.0, 1_000_000}, {at(9, 38), 11.5, 1_200_000}}

	// window rises, but below the open
	d, h := setup(t, "AAA", points)
	h.RecordOpenAnchor("AAA", 12.0)
	active, reason := d.Classify("AAA", at(9, 39))
	assert.False(t, active)
	assert.Equal(t, "downtrending_vs_open_930", reason)

	// above the open
	d, h = setup(t, "AAA", points)
	h.RecordOpenAnchor("AAA", 11.2)
	active, reason = d.Classify("AAA", at(9, 39))
	assert.True(t, active)
	assert.Equal(t, "active_vs_open_930", reason)
}

func TestClassify_AnchorIgnoredBeforeOpen(t *testing.T) {
	d, h := setup(t, "AAA", []obs{{at(9, 0), 10, 1000}, {at(9, 20), 10.5, 9000}})
	h.RecordOpenAnchor("AAA", 50)

	active, reason := d.Classify("AAA", at(9, 20))
	assert.True(t, active)
	assert.Equal(t, "active_vs_window_start", reason)
}

// Any constant-price window is frozen regardless of volume or window size.
func TestClassify_FrozenProperty(t *testing.T) {
	for n := 2; n <= 5; n++ {
		for _, price := range []float64{0.5, 10, 250} {
			t.Run(fmt.Sprintf("n=%d/price=%v", n, price), func(t *testing.T) {
				points := make([]obs, n)
				for i := range points {
					points[i] = obs{at(8, 5*i), price, int64(i) * 1_000_000}
				}
				d, _ := setup(t, "AAA", points)
				active, reason := d.Classify("AAA", at(8, 5*(n-1)))
				assert.False(t, active)
				assert.Equal(t, ReasonPriceFrozen, reason)
			})
		}
	}
}

// Newest below reference is downtrending regardless of volume growth.
func TestClassify_DowntrendProperty(t *testing.T) {
	for _, growth := range []int64{0, 1000, 1_000_000, 1_000_000_000} {
		t.Run(fmt.Sprint(growth), func(t *testing.T) {
			d, _ := setup(t, "BBB", []obs{{at(8, 0), 20, 0}, {at(8, 10), 20.5, growth / 2}, {at(8, 20), 19.99, growth}})
			active, reason := d.Classify("BBB", at(8, 20))
			assert.False(t, active)
			assert.Equal(t, "downtrending_vs_window_start", reason)
		})
	}
}
