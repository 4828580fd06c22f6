package contracts

import "time"

// HistoryEntry is one (timestamp, price, volume) observation
type HistoryEntry struct {
	At     time.Time `json:"at"`
	Price  float64   `json:"price"`
	Volume int64     `json:"volume"`
}

// Candidate is a Snapshot plus enrichment, valid for one tick
type Candidate struct {
	Snapshot
	GapPct        float64 `json:"gap_pct"`
	RVOL          float64 `json:"rvol"`
	AvgVolume     float64 `json:"avg_volume"` // 20-session average daily volume
	ATR           float64 `json:"atr"`
	ATRStretch    float64 `json:"atr_stretch"`
	PremarketHigh float64 `json:"premarket_high"`
	OpenPrice     float64 `json:"open_price"` // 0 before the open anchor exists
}

// DollarVolume is last price × intraday volume
func (c Candidate) DollarVolume() float64 {
	return c.LastPrice * float64(c.Volume)
}

// ScoreBreakdown keeps each composite component for logs and rationale
type ScoreBreakdown struct {
	Gap        float64 `json:"gap"`
	Delta      float64 `json:"delta"`
	VolumeRate float64 `json:"volume_rate"`
	AbsVolume  float64 `json:"abs_volume"`
	Heartbeat  float64 `json:"heartbeat"`
}

// Total is the unclamped sum of all components
func (b ScoreBreakdown) Total() float64 {
	return b.Gap + b.Delta + b.VolumeRate + b.AbsVolume + b.Heartbeat
}

// ScoredCandidate is a Candidate with its composite score
type ScoredCandidate struct {
	Candidate
	Score           float64        `json:"score"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
	HeartbeatActive bool           `json:"heartbeat_active"`
	HeartbeatReason string         `json:"heartbeat_reason"`
}

// DeficiencyVerdict is the minimum-bid-price state for one ticker
type DeficiencyVerdict struct {
	IsDeficient bool   `json:"is_deficient"`
	Reason      string `json:"reason"`
}

// DailyBar is one session of OHLCV history
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MinuteBar is one minute of OHLCV
type MinuteBar struct {
	Start  time.Time `json:"start"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// TickerDetails is provider reference data for one symbol
type TickerDetails struct {
	Ticker string `json:"ticker"`
	Market string `json:"market"` // stocks, otc, ...
	Type   string `json:"type"`   // CS, ADRC, WARRANT, ...
	Active bool   `json:"active"`
}
