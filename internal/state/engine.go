package state

import (
	"sync"

	"github.com/wonny/gapscan/internal/contracts"
)

// DeficiencyCache holds per-ticker verdicts for the current day
type DeficiencyCache struct {
	mu       sync.RWMutex
	verdicts map[string]contracts.DeficiencyVerdict
}

// NewDeficiencyCache creates an empty cache
func NewDeficiencyCache() *DeficiencyCache {
	return &DeficiencyCache{verdicts: make(map[string]contracts.DeficiencyVerdict)}
}

// Get returns a cached verdict
func (c *DeficiencyCache) Get(ticker string) (contracts.DeficiencyVerdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.verdicts[ticker]
	return v, ok
}

// Set stores a verdict
func (c *DeficiencyCache) Set(ticker string, v contracts.DeficiencyVerdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verdicts[ticker] = v
}

// Clear drops every verdict
func (c *DeficiencyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verdicts = make(map[string]contracts.DeficiencyVerdict)
}

// Len returns the number of cached verdicts
func (c *DeficiencyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.verdicts)
}

// EngineState is all process-wide mutable scan state.
// Only the orchestrator calls ResetForDay.
type EngineState struct {
	History    *SnapshotHistory
	Deficiency *DeficiencyCache
	Daily      *DailyCache

	mu   sync.Mutex
	date string
}

// NewEngineState creates fresh state with the given history capacity
func NewEngineState(capacity int) *EngineState {
	return &EngineState{
		History:    NewSnapshotHistory(capacity),
		Deficiency: NewDeficiencyCache(),
		Daily:      NewDailyCache(),
	}
}

// ResetForDay clears history, anchors and daily enrichment lookups when
// date differs from the current trading date, and the deficiency cache too
// when resetDeficiency.
// Returns true when a reset happened.
func (s *EngineState) ResetForDay(date string, resetDeficiency bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.date == date {
		return false
	}

	s.History.ResetAll()
	s.Daily.Clear()
	if resetDeficiency {
		s.Deficiency.Clear()
	}
	s.date = date
	return true
}

// Date returns the trading date the state belongs to
func (s *EngineState) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.date
}
