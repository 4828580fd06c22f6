package state

import (
	"sync"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
)

// DefaultCapacity is the per-ticker queue length
const DefaultCapacity = 5

// SnapshotHistory is a bounded, per-ticker, time-ordered observation store
// plus the once-per-day market open anchor.
// Every operation is total: an unknown ticker yields empty results.
// ⭐ SSOT: 티커별 관측 이력은 여기서만 보관
type SnapshotHistory struct {
	mu       sync.RWMutex
	capacity int
	queues   map[string][]contracts.HistoryEntry
	anchors  map[string]float64
}

// NewSnapshotHistory creates an empty history (capacity < 2 uses the default)
func NewSnapshotHistory(capacity int) *SnapshotHistory {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &SnapshotHistory{
		capacity: capacity,
		queues:   make(map[string][]contracts.HistoryEntry),
		anchors:  make(map[string]float64),
	}
}

// Record appends an observation, evicting the oldest beyond capacity.
// An entry not strictly newer than the last one is ignored (returns false).
func (h *SnapshotHistory) Record(ticker string, price float64, volume int64, at time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	q := h.queues[ticker]
	if n := len(q); n > 0 && !at.After(q[n-1].At) {
		return false
	}

	q = append(q, contracts.HistoryEntry{At: at, Price: price, Volume: volume})
	if len(q) > h.capacity {
		// FIFO: 가장 오래된 항목 제거
		q = append(q[:0:0], q[len(q)-h.capacity:]...)
	}
	h.queues[ticker] = q
	return true
}

// History returns a copy of the ticker's entries, oldest first
func (h *SnapshotHistory) History(ticker string) []contracts.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	q := h.queues[ticker]
	out := make([]contracts.HistoryEntry, len(q))
	copy(out, q)
	return out
}

// RecordOpenAnchor sets the market open price once per day.
// Returns false when an anchor already exists or price is not positive.
func (h *SnapshotHistory) RecordOpenAnchor(ticker string, price float64) bool {
	if price <= 0 {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.anchors[ticker]; exists {
		return false
	}
	h.anchors[ticker] = price
	return true
}

// OpenAnchor returns the market open price if set
func (h *SnapshotHistory) OpenAnchor(ticker string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p, ok := h.anchors[ticker]
	return p, ok
}

// ResetAll clears every queue and anchor
func (h *SnapshotHistory) ResetAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.queues = make(map[string][]contracts.HistoryEntry)
	h.anchors = make(map[string]float64)
}

// Stats returns ticker and anchor counts
func (h *SnapshotHistory) Stats() (tickers, anchors int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.queues), len(h.anchors)
}
