package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/gapscan/internal/analysis"
	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/orchestrator"
	"github.com/wonny/gapscan/internal/output"
	"github.com/wonny/gapscan/internal/scheduler"
	"github.com/wonny/gapscan/pkg/logger"
)

const (
	dateLayout         = "2006-01-02"
	defaultRecentPicks = 20
	maxRecentPicks     = 365
)

// Engine is the read side of a running orchestrator
type Engine interface {
	Status() orchestrator.Status
	LastWatchlist() []contracts.WatchlistRow
}

// PickHistory lists persisted final picks (Postgres mirror)
type PickHistory interface {
	RecentPicks(ctx context.Context, limit int) ([]contracts.FinalPickRecord, error)
}

// JobStats exposes scheduler job statistics
type JobStats interface {
	GetJobStats() map[string]scheduler.JobStats
}

// ScannerHandler serves scanner state and output records
// ⭐ SSOT: 스캐너 조회 API 핸들러는 이 구조체에서만
type ScannerHandler struct {
	engine        Engine
	pickPath      string
	watchlistPath string
	history       PickHistory
	jobs          JobStats
	loc           *time.Location
	now           func() time.Time
	logger        *logger.Logger
}

// NewScannerHandler creates a scanner handler. engine, history and jobs may be nil.
func NewScannerHandler(
	engine Engine,
	pickPath string,
	watchlistPath string,
	history PickHistory,
	jobs JobStats,
	loc *time.Location,
	log *logger.Logger,
) *ScannerHandler {
	return &ScannerHandler{
		engine:        engine,
		pickPath:      pickPath,
		watchlistPath: watchlistPath,
		history:       history,
		jobs:          jobs,
		loc:           loc,
		now:           time.Now,
		logger:        log,
	}
}

// GetState returns the engine status
// GET /api/state
func (h *ScannerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "Scanner is not running in this process")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.Status())
}

// GetWatchlist returns the latest tick's top-N
// GET /api/watchlist
func (h *ScannerHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "Scanner is not running in this process")
		return
	}

	rows := h.engine.LastWatchlist()
	if rows == nil {
		rows = []contracts.WatchlistRow{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	})
}

// PickResponse is the pick file view for one trading date
type PickResponse struct {
	Date  string                      `json:"date"`
	Final *contracts.FinalPickRecord  `json:"final,omitempty"`
	Rows  []contracts.FinalPickRecord `json:"rows"`
}

// GetPick returns the pick file rows for a date (default: today)
// GET /api/pick?date=YYYY-MM-DD
func (h *ScannerHandler) GetPick(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	rows, err := output.PicksFor(h.pickPath, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read pick file")
		respondError(w, http.StatusInternalServerError, "Failed to read pick file")
		return
	}
	if rows == nil {
		rows = []contracts.FinalPickRecord{}
	}

	resp := PickResponse{Date: date, Rows: rows}
	for i := range rows {
		if rows[i].IsFinal {
			final := rows[i]
			resp.Final = &final
			break
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetRecentPicks returns the newest final picks from the mirror
// GET /api/picks/recent?limit=N
func (h *ScannerHandler) GetRecentPicks(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "Pick history requires DATABASE_URL")
		return
	}

	limit := defaultRecentPicks
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxRecentPicks {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected 1-365)")
			return
		}
		limit = n
	}

	picks, err := h.history.RecentPicks(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query pick history")
		respondError(w, http.StatusInternalServerError, "Failed to query pick history")
		return
	}
	if picks == nil {
		picks = []contracts.FinalPickRecord{}
	}

	respondJSON(w, http.StatusOK, picks)
}

// GetAnalysis summarizes one date of watchlist.csv
// GET /api/analysis?date=YYYY-MM-DD
func (h *ScannerHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	rows, err := output.ReadWatchlist(h.watchlistPath, h.loc)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read watchlist file")
		respondError(w, http.StatusInternalServerError, "Failed to read watchlist file")
		return
	}

	respondJSON(w, http.StatusOK, analysis.Analyze(rows, date))
}

// GetJobs returns scheduler job statistics
// GET /api/scheduler/jobs
func (h *ScannerHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, http.StatusNotFound, "Scheduler is not running in this process")
		return
	}

	respondJSON(w, http.StatusOK, h.jobs.GetJobStats())
}

// dateParam parses ?date= or falls back to today's exchange date
func (h *ScannerHandler) dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return h.now().In(h.loc).Format(dateLayout), true
	}

	if _, err := time.Parse(dateLayout, date); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
		return "", false
	}
	return date, true
}
