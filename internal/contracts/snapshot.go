package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Snapshot is the canonical point-in-time quote for one ticker
// ⭐ SSOT: provider 레코드는 NormalizeSnapshot을 거쳐서만 Snapshot이 됨
type Snapshot struct {
	Ticker     string    `json:"ticker"`
	LastPrice  float64   `json:"last_price"`
	PrevClose  float64   `json:"prev_close"`
	Volume     int64     `json:"volume"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	ObservedAt time.Time `json:"observed_at"`
}

// HasPrices reports whether both price fields needed for a gap are present
func (s Snapshot) HasPrices() bool {
	return s.LastPrice > 0 && s.PrevClose > 0
}

// RawSnapshot is a provider record before normalization.
// Nil means the provider omitted the field.
type RawSnapshot struct {
	Ticker    string
	Price     *float64
	PrevClose *float64
	Volume    *float64
	Open      *float64
	High      *float64
	Low       *float64
	Close     *float64
	Timestamp time.Time
}

// NormalizeSnapshot converts a provider record into a Snapshot.
// Ticker case is kept (lowercase 'p' marks preferreds).
// Missing prices stay zero (the liquidity gate counts them); negative or
// non-finite values and empty tickers are rejected.
func NormalizeSnapshot(raw RawSnapshot, now time.Time) (Snapshot, error) {
	ticker := strings.TrimSpace(raw.Ticker)
	if ticker == "" {
		return Snapshot{}, fmt.Errorf("%w: empty ticker", ErrInvalidSnapshot)
	}

	var bad string
	num := func(name string, v *float64) float64 {
		if v == nil || bad != "" {
			return 0
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			bad = name
			return 0
		}
		return *v
	}

	s := Snapshot{
		Ticker:     ticker,
		LastPrice:  num("price", raw.Price),
		PrevClose:  num("prev_close", raw.PrevClose),
		Open:       num("open", raw.Open),
		High:       num("high", raw.High),
		Low:        num("low", raw.Low),
		Close:      num("close", raw.Close),
		Volume:     int64(num("volume", raw.Volume)),
		ObservedAt: raw.Timestamp,
	}
	if bad != "" {
		return Snapshot{}, fmt.Errorf("%w: %s has invalid %s", ErrInvalidSnapshot, ticker, bad)
	}

	// 일부 응답은 last trade 없이 session close만 채움
	if s.LastPrice == 0 && s.Close > 0 {
		s.LastPrice = s.Close
	}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = now
	}

	return s, nil
}

// Float64 returns a pointer for building RawSnapshot literals
func Float64(v float64) *float64 {
	return &v
}
