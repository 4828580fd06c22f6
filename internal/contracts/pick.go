package contracts

import "time"

// SelectionState is the once-per-day final pick state
type SelectionState string

const (
	StateAwaiting       SelectionState = "AWAITING"
	StatePickedNormal   SelectionState = "PICKED_NORMAL"
	StatePickedLate     SelectionState = "PICKED_LATE"
	StatePickedFallback SelectionState = "PICKED_FALLBACK"
)

// Picked reports whether the state is terminal for the day
func (s SelectionState) Picked() bool {
	return s != StateAwaiting && s != ""
}

// FinalPickRecord is one append-only row of the pick file.
// At most one row per trading day has IsFinal=true.
type FinalPickRecord struct {
	Date          string         `json:"date"` // 2006-01-02 (exchange local)
	Time          string         `json:"time"` // 15:04:05
	Ticker        string         `json:"ticker"`
	GapPct        float64        `json:"gap_pct"`
	RVOL          float64        `json:"rvol"`
	ATRStretch    float64        `json:"atr_stretch"`
	PremarketHigh float64        `json:"premarket_high"`
	OpenPrice     float64        `json:"open_price"`
	Score         float64        `json:"score"`
	IsFinal       bool           `json:"is_final"`
	Rationale     string         `json:"rationale"`
	Catalyst      string         `json:"catalyst,omitempty"`
	Mode          SelectionState `json:"mode"`
	RunID         string         `json:"run_id,omitempty"`
}

// WatchlistRow is one entry of the rolling top-N written every tick
type WatchlistRow struct {
	Date      string    `json:"date"`
	Ticker    string    `json:"ticker"`
	Score     float64   `json:"score"`
	GapPct    float64   `json:"gap_pct"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}
