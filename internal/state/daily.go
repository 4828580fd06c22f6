package state

import "sync"

// DailyStats are a ticker's bar-derived figures, fixed for a trading day once fetched
type DailyStats struct {
	AvgVolume   float64
	ATR         float64
	ATRFallback bool
}

// DailyCache holds per-day enrichment lookups so each ticker's bars are
// fetched once per trading day
type DailyCache struct {
	mu      sync.RWMutex
	stats   map[string]DailyStats
	pmHighs map[string]float64 // 장 시작 이후 확정된 프리마켓 고가
}

// NewDailyCache creates an empty cache
func NewDailyCache() *DailyCache {
	return &DailyCache{
		stats:   make(map[string]DailyStats),
		pmHighs: make(map[string]float64),
	}
}

// Stats returns cached daily stats
func (c *DailyCache) Stats(ticker string) (DailyStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.stats[ticker]
	return s, ok
}

// SetStats stores daily stats
func (c *DailyCache) SetStats(ticker string, s DailyStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats[ticker] = s
}

// PremarketHigh returns a premarket high finalized at the open
func (c *DailyCache) PremarketHigh(ticker string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, ok := c.pmHighs[ticker]
	return h, ok
}

// SetPremarketHigh stores a finalized premarket high
func (c *DailyCache) SetPremarketHigh(ticker string, high float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pmHighs[ticker] = high
}

// Clear drops everything
func (c *DailyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats = make(map[string]DailyStats)
	c.pmHighs = make(map[string]float64)
}

// Len returns the number of tickers with cached stats
func (c *DailyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.stats)
}
