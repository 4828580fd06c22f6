package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/analysis"
	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/orchestrator"
	"github.com/wonny/gapscan/internal/output"
	"github.com/wonny/gapscan/internal/scheduler"
	"github.com/wonny/gapscan/pkg/logger"
)

type fakeEngine struct {
	status orchestrator.Status
	rows   []contracts.WatchlistRow
}

func (f *fakeEngine) Status() orchestrator.Status              { return f.status }
func (f *fakeEngine) LastWatchlist() []contracts.WatchlistRow { return f.rows }

type fakeHistory struct {
	picks []contracts.FinalPickRecord
	err   error
	limit int
}

func (f *fakeHistory) RecentPicks(ctx context.Context, limit int) ([]contracts.FinalPickRecord, error) {
	f.limit = limit
	return f.picks, f.err
}

type fakeJobs struct{}

func (fakeJobs) GetJobStats() map[string]scheduler.JobStats {
	return map[string]scheduler.JobStats{"scan_session": {JobName: "scan_session", Schedule: "0 0 4 * * 1-5"}}
}

func newTestHandler(t *testing.T, engine Engine, history PickHistory, jobs JobStats) (*ScannerHandler, string) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dir := t.TempDir()
	h := NewScannerHandler(engine, filepath.Join(dir, output.PickFile), filepath.Join(dir, output.WatchlistFile), history, jobs, loc, logger.Nop())
	h.now = func() time.Time { return time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) }
	return h, dir
}

func serve(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetState(t *testing.T) {
	engine := &fakeEngine{status: orchestrator.Status{RunID: "run-1", Date: "2026-03-02", Selection: contracts.StateAwaiting}}
	h, _ := newTestHandler(t, engine, nil, nil)

	rec := serve(h.GetState, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var got orchestrator.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, contracts.StateAwaiting, got.Selection)
}

func TestGetState_NoEngine(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, serve(h.GetState, "/api/state").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h.GetWatchlist, "/api/watchlist").Code)
}

func TestGetWatchlist(t *testing.T) {
	engine := &fakeEngine{rows: []contracts.WatchlistRow{{Ticker: "AAA", Score: 80}, {Ticker: "BBB", Score: 60}}}
	h, _ := newTestHandler(t, engine, nil, nil)

	rec := serve(h.GetWatchlist, "/api/watchlist")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Count int                      `json:"count"`
		Rows  []contracts.WatchlistRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "AAA", got.Rows[0].Ticker)
}

func TestGetPick(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil, nil)
	picks := output.NewPickCSV(h.pickPath)

	require.NoError(t, picks.WritePick(context.Background(), contracts.FinalPickRecord{
		Date: "2026-03-01", Time: "09:45:00", Ticker: "OLD", IsFinal: true, Mode: contracts.StatePickedNormal,
	}))
	require.NoError(t, picks.WritePick(context.Background(), contracts.FinalPickRecord{
		Date: "2026-03-02", Time: "09:45:00", Ticker: "AAA", Score: 71.5, IsFinal: true, Mode: contracts.StatePickedNormal,
	}))

	t.Run("defaults to today", func(t *testing.T) {
		rec := serve(h.GetPick, "/api/pick")
		require.Equal(t, http.StatusOK, rec.Code)

		var got PickResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "2026-03-02", got.Date)
		require.Len(t, got.Rows, 1)
		require.NotNil(t, got.Final)
		assert.Equal(t, "AAA", got.Final.Ticker)
	})

	t.Run("explicit date", func(t *testing.T) {
		rec := serve(h.GetPick, "/api/pick?date=2026-03-01")
		require.Equal(t, http.StatusOK, rec.Code)

		var got PickResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.NotNil(t, got.Final)
		assert.Equal(t, "OLD", got.Final.Ticker)
	})

	t.Run("no pick yet", func(t *testing.T) {
		rec := serve(h.GetPick, "/api/pick?date=2026-03-03")
		require.Equal(t, http.StatusOK, rec.Code)

		var got PickResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Nil(t, got.Final)
		assert.Empty(t, got.Rows)
	})

	t.Run("bad date", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(h.GetPick, "/api/pick?date=03/02/2026").Code)
	})
}

func TestGetRecentPicks(t *testing.T) {
	history := &fakeHistory{picks: []contracts.FinalPickRecord{{Date: "2026-03-02", Ticker: "AAA", IsFinal: true}}}
	h, _ := newTestHandler(t, nil, history, nil)

	rec := serve(h.GetRecentPicks, "/api/picks/recent?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, history.limit)

	var got []contracts.FinalPickRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "AAA", got[0].Ticker)

	assert.Equal(t, http.StatusBadRequest, serve(h.GetRecentPicks, "/api/picks/recent?limit=0").Code)

	history.err = errors.New("connection refused")
	assert.Equal(t, http.StatusInternalServerError, serve(h.GetRecentPicks, "/api/picks/recent").Code)
	assert.Equal(t, defaultRecentPicks, history.limit)
}

func TestGetRecentPicks_NoMirror(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, serve(h.GetRecentPicks, "/api/picks/recent").Code)
}

func TestGetAnalysis(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil, nil)
	watchlist := output.NewWatchlistCSV(h.watchlistPath)

	at := time.Date(2026, 3, 2, 9, 15, 0, 0, h.loc)
	require.NoError(t, watchlist.WriteWatchlist(context.Background(), []contracts.WatchlistRow{
		{Date: "2026-03-02", Ticker: "AAA", Score: 50, GapPct: 8, Volume: 1000, Timestamp: at},
		{Date: "2026-03-02", Ticker: "BBB", Score: 40, GapPct: 6, Volume: 900, Timestamp: at},
	}))
	require.NoError(t, watchlist.WriteWatchlist(context.Background(), []contracts.WatchlistRow{
		{Date: "2026-03-02", Ticker: "AAA", Score: 70, GapPct: 10, Volume: 2000, Timestamp: at.Add(5 * time.Minute)},
	}))

	rec := serve(h.GetAnalysis, "/api/analysis?date=2026-03-02")
	require.Equal(t, http.StatusOK, rec.Code)

	var got analysis.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Tickers, 2)
	assert.Equal(t, "AAA", got.Tickers[0].Ticker)
	assert.Equal(t, 2, got.Tickers[0].Appearances)
}

func TestGetJobs(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil, fakeJobs{})

	rec := serve(h.GetJobs, "/api/scheduler/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scan_session")

	h.jobs = nil
	assert.Equal(t, http.StatusNotFound, serve(h.GetJobs, "/api/scheduler/jobs").Code)
}
