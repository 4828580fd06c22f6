package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/output"
)

const dateLayout = "2006-01-02"

// EODOptions are the end-of-day review thresholds.
// Moves are measured in gap points along a ticker's watchlist trail.
type EODOptions struct {
	MinGainPts  float64       `json:"min_gain_pts"`
	MinVolume   int64         `json:"min_volume"`
	Top         int           `json:"top"`
	LastEntry   int           `json:"last_entry_hour"` // first seen must be before this hour
	MinLead     time.Duration `json:"min_lead"`        // first seen → peak
	EntrySpan   time.Duration `json:"entry_span"`
	EntryMax    int           `json:"entry_max"`
	ExitBandPts float64       `json:"exit_band_pts"`
}

// DefaultEODOptions returns the standard review thresholds
func DefaultEODOptions() EODOptions {
	return EODOptions{
		MinGainPts:  8,
		MinVolume:   1_000_000,
		Top:         5,
		LastEntry:   14,
		MinLead:     5 * time.Minute,
		EntrySpan:   30 * time.Minute,
		EntryMax:    10,
		ExitBandPts: 2,
	}
}

// Window is a time and gap range on a ticker's trail
type Window struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	MinGap float64   `json:"min_gap"`
	MaxGap float64   `json:"max_gap"`
}

// Opportunity is a catchable move seen on the watchlist
type Opportunity struct {
	Rank      int         `json:"rank"`
	Ticker    string      `json:"ticker"`
	FirstSeen Observation `json:"first_seen"`
	Peak      Observation `json:"peak"`
	GainPts   float64     `json:"gain_pts"` // peak gap - first gap
	MaxVolume int64       `json:"max_volume"`
	Entry     Window      `json:"entry"`
	Exit      Window      `json:"exit"`
}

// TradeCheck compares one journal trade with the day's opportunities
type TradeCheck struct {
	Ticker  string          `json:"ticker"`
	Dollars decimal.Decimal `json:"pl_dollar"`
	Percent decimal.Decimal `json:"pl_percent"`
	Rank    int             `json:"rank"`    // 0 = not among the top opportunities
	Capture float64         `json:"capture"` // pl_percent / gain_pts
}

// EODReport is the end-of-day review of one trading date
type EODReport struct {
	Date    string        `json:"date"`
	Tracked int           `json:"tracked"`
	Options EODOptions    `json:"options"`
	Picks   []Opportunity `json:"picks"`
	Trades  []TradeCheck  `json:"trades"`
	Missed  []Opportunity `json:"missed"` // top picks never traded
}

// EndOfDay finds the day's best catchable moves from watchlist rows and
// checks the journal's trades for date against them
func EndOfDay(rows []contracts.WatchlistRow, trades []output.JournalEntry, date string, opts EODOptions) EODReport {
	byTicker, _ := observations(rows, date)
	report := EODReport{Date: date, Tracked: len(byTicker), Options: opts}

	var picks []Opportunity
	for ticker, obs := range byTicker {
		if op, ok := opportunity(ticker, obs, opts); ok {
			picks = append(picks, op)
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].GainPts != picks[j].GainPts {
			return picks[i].GainPts > picks[j].GainPts
		}
		return picks[i].Ticker < picks[j].Ticker
	})
	if opts.Top > 0 && len(picks) > opts.Top {
		picks = picks[:opts.Top]
	}
	for i := range picks {
		picks[i].Rank = i + 1
	}
	report.Picks = picks

	traded := make(map[string]bool)
	for _, e := range trades {
		if e.Date != date {
			continue
		}
		ticker := strings.ToUpper(e.Ticker)
		traded[ticker] = true

		check := TradeCheck{Ticker: ticker, Dollars: e.Dollars, Percent: e.Percent}
		for _, p := range picks {
			if p.Ticker == ticker {
				check.Rank = p.Rank
				if p.GainPts > 0 {
					pct, _ := e.Percent.Float64()
					check.Capture = pct / p.GainPts
				}
				break
			}
		}
		report.Trades = append(report.Trades, check)
	}

	for _, p := range picks {
		if !traded[p.Ticker] {
			report.Missed = append(report.Missed, p)
		}
	}
	return report
}

// opportunity evaluates one ticker's trail (oldest first)
func opportunity(ticker string, obs []Observation, opts EODOptions) (Opportunity, bool) {
	first := obs[0]
	peak := first
	var maxVolume int64
	for _, o := range obs {
		if o.GapPct > peak.GapPct {
			peak = o
		}
		if o.Volume > maxVolume {
			maxVolume = o.Volume
		}
	}

	gain := peak.GapPct - first.GapPct
	switch {
	case gain < opts.MinGainPts:
		return Opportunity{}, false
	case first.At.Hour() >= opts.LastEntry:
		return Opportunity{}, false
	case maxVolume < opts.MinVolume:
		return Opportunity{}, false
	case peak.At.Sub(first.At) < opts.MinLead:
		return Opportunity{}, false
	}

	var entry []Observation
	for i, o := range obs {
		if i >= opts.EntryMax || o.At.After(first.At.Add(opts.EntrySpan)) {
			break
		}
		entry = append(entry, o)
	}

	var exit []Observation
	for _, o := range obs {
		if o.GapPct >= peak.GapPct-opts.ExitBandPts {
			exit = append(exit, o)
		}
	}

	return Opportunity{
		Ticker:    ticker,
		FirstSeen: first,
		Peak:      peak,
		GainPts:   gain,
		MaxVolume: maxVolume,
		Entry:     window(entry),
		Exit:      window(exit),
	}, true
}

// window spans a non-empty, time-ordered run of observations
func window(obs []Observation) Window {
	w := Window{
		Start:  obs[0].At,
		End:    obs[len(obs)-1].At,
		MinGap: obs[0].GapPct,
		MaxGap: obs[0].GapPct,
	}
	for _, o := range obs[1:] {
		if o.GapPct < w.MinGap {
			w.MinGap = o.GapPct
		}
		if o.GapPct > w.MaxGap {
			w.MaxGap = o.GapPct
		}
	}
	return w
}

// Markdown renders the report
func (r EODReport) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# End-of-Day Analysis - %s\n\n", r.Date)
	fmt.Fprintf(&b, "**Tickers tracked:** %d  \n", r.Tracked)
	fmt.Fprintf(&b, "**Minimum move:** %.1f gap points\n\n", r.Options.MinGainPts)

	if len(r.Picks) == 0 {
		fmt.Fprintf(&b, "**No catchable opportunities** (min move: %.1f pts)\n", r.Options.MinGainPts)
	} else {
		fmt.Fprintf(&b, "## Top %d Catchable Picks\n\n", len(r.Picks))
	}
	for _, p := range r.Picks {
		fmt.Fprintf(&b, "### #%d: %s (+%.1f pts)\n\n", p.Rank, p.Ticker, p.GainPts)
		fmt.Fprintf(&b, "- First seen: %s @ %+.2f%%\n", p.FirstSeen.At.Format("15:04"), p.FirstSeen.GapPct)
		fmt.Fprintf(&b, "- Peak: %s @ %+.2f%%\n", p.Peak.At.Format("15:04"), p.Peak.GapPct)
		fmt.Fprintf(&b, "- Volume: %.1fM\n", float64(p.MaxVolume)/1_000_000)
		fmt.Fprintf(&b, "- Entry window: %s\n", p.Entry)
		fmt.Fprintf(&b, "- Exit window: %s\n\n", p.Exit)
	}

	if len(r.Trades) > 0 {
		b.WriteString("## Journal vs Picks\n\n")
		for _, t := range r.Trades {
			fmt.Fprintf(&b, "- %s: $%s (%s%%)", t.Ticker, t.Dollars.StringFixed(2), t.Percent.StringFixed(2))
			if t.Rank > 0 {
				fmt.Fprintf(&b, " HIT pick #%d, captured %.0f%%", t.Rank, t.Capture*100)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(r.Missed) > 0 {
		b.WriteString("## Missed\n\n")
		for _, p := range r.Missed {
			fmt.Fprintf(&b, "- %s: +%.1f pts (entry %s)\n", p.Ticker, p.GainPts, p.Entry)
		}
	}
	return b.String()
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s @ %+.2f%%..%+.2f%%", w.Start.Format("15:04"), w.End.Format("15:04"), w.MinGap, w.MaxGap)
}
