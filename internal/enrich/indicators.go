package enrich

import (
	"math"
	"sort"

	"github.com/wonny/gapscan/internal/contracts"
)

// GapPct returns the percent gap of a snapshot.
// Premarket (or reference prev_close) uses the previous close; intraday with
// reference "open" uses the day's open anchor when one exists.
func GapPct(s contracts.Snapshot, anchor float64, intraday bool, reference string) float64 {
	if !s.HasPrices() {
		return 0
	}
	base := s.PrevClose
	if intraday && reference == "open" && anchor > 0 {
		base = anchor
	}
	return (s.LastPrice - base) / base * 100
}

// RawGap is the prev-close gap used to pre-rank the snapshot universe
func RawGap(s contracts.Snapshot) float64 {
	return GapPct(s, 0, false, "")
}

// AverageVolume is the mean daily volume of the last days bars.
// Fewer bars average what exists; none gives 0.
func AverageVolume(bars []contracts.DailyBar, days int) float64 {
	bars = lastN(bars, days)
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}

// ATR is the simple mean of the last period true ranges.
// Needs period+1 bars; otherwise ok is false.
func ATR(bars []contracts.DailyBar, period int) (atr float64, ok bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}
	bars = lastN(bars, period+1)

	var sum float64
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		h, l := bars[i].High, bars[i].Low
		tr := math.Max(h-l, math.Max(math.Abs(h-prev), math.Abs(l-prev)))
		sum += tr
	}
	return sum / float64(period), true
}

// ATRStretch is how many ATRs the last price sits from the previous close
func ATRStretch(s contracts.Snapshot, atr float64) float64 {
	if !s.HasPrices() || atr <= 0 {
		return 0
	}
	return (s.LastPrice - s.PrevClose) / atr
}

// MaxHigh returns the highest minute high, 0 for no bars
func MaxHigh(bars []contracts.MinuteBar) float64 {
	var high float64
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
	}
	return high
}

// lastN returns the newest n bars in date order
func lastN(bars []contracts.DailyBar, n int) []contracts.DailyBar {
	sorted := make([]contracts.DailyBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	if n > 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}
