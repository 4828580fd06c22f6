package analysis

import (
	"sort"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
)

// Observation is one watchlist appearance
type Observation struct {
	At     time.Time `json:"at"`
	Score  float64   `json:"score"`
	GapPct float64   `json:"gap_pct"`
	Volume int64     `json:"volume"`
}

// TickerSummary is one ticker's activity in the rolling top-N
type TickerSummary struct {
	Ticker      string        `json:"ticker"`
	Appearances int           `json:"appearances"`
	FirstSeen   Observation   `json:"first_seen"`
	Best        Observation   `json:"best"`
	GapChange   float64       `json:"gap_change"` // last gap - first gap, points
	History     []Observation `json:"history"`
}

// Report summarizes one trading date
type Report struct {
	Date    string          `json:"date"`
	Ticks   int             `json:"ticks"`
	Tickers []TickerSummary `json:"tickers"`
}

// Analyze builds the report for date from watchlist rows.
// Tickers are ordered by appearances, then best score.
func Analyze(rows []contracts.WatchlistRow, date string) Report {
	byTicker, ticks := observations(rows, date)

	report := Report{Date: date, Ticks: ticks}
	for ticker, obs := range byTicker {
		best := obs[0]
		for _, o := range obs[1:] {
			if o.Score > best.Score {
				best = o
			}
		}

		report.Tickers = append(report.Tickers, TickerSummary{
			Ticker:      ticker,
			Appearances: len(obs),
			FirstSeen:   obs[0],
			Best:        best,
			GapChange:   obs[len(obs)-1].GapPct - obs[0].GapPct,
			History:     obs,
		})
	}

	sort.Slice(report.Tickers, func(i, j int) bool {
		a, b := report.Tickers[i], report.Tickers[j]
		if a.Appearances != b.Appearances {
			return a.Appearances > b.Appearances
		}
		if a.Best.Score != b.Best.Score {
			return a.Best.Score > b.Best.Score
		}
		return a.Ticker < b.Ticker
	})
	return report
}

// observations groups date's rows per ticker, oldest first, and counts
// distinct tick timestamps
func observations(rows []contracts.WatchlistRow, date string) (map[string][]Observation, int) {
	byTicker := make(map[string][]Observation)
	ticks := make(map[time.Time]struct{})

	for _, r := range rows {
		if r.Date != date {
			continue
		}
		ticks[r.Timestamp] = struct{}{}
		byTicker[r.Ticker] = append(byTicker[r.Ticker], Observation{
			At:     r.Timestamp,
			Score:  r.Score,
			GapPct: r.GapPct,
			Volume: r.Volume,
		})
	}

	for _, obs := range byTicker {
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].At.Before(obs[j].At) })
	}
	return byTicker, len(ticks)
}

// Find returns the summary for ticker
func (r Report) Find(ticker string) (TickerSummary, bool) {
	for _, t := range r.Tickers {
		if t.Ticker == ticker {
			return t, true
		}
	}
	return TickerSummary{}, false
}
