package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/api/handlers"
	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/metrics"
	"github.com/wonny/gapscan/pkg/logger"
)

func newTestRouter(t *testing.T, hub *Hub, reg *prometheus.Registry) http.Handler {
	t.Helper()
	scanner := handlers.NewScannerHandler(nil, t.TempDir()+"/today_pick.csv", t.TempDir()+"/watchlist.csv", nil, nil, time.UTC, logger.Nop())
	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}
	return NewRouter(scanner, hub, gatherer, logger.Nop())
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	rec.RecordTick("PREMARKET", 150*time.Millisecond)

	router := newTestRouter(t, nil, reg)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "gapscan_ticks_total")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pick", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(newTestRouter(t, hub, nil))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.PublishWatchlist([]contracts.WatchlistRow{{Ticker: "AAA", Score: 75}})
	msg := readMessage(t, conn)
	assert.Equal(t, MessageWatchlist, msg["type"])
	rows, ok := msg["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "AAA", rows[0].(map[string]interface{})["ticker"])

	hub.PublishPick(contracts.FinalPickRecord{Ticker: "AAA", IsFinal: true, Mode: contracts.StatePickedNormal})
	msg = readMessage(t, conn)
	assert.Equal(t, MessagePick, msg["type"])
}

func TestHub_ReplaysLatestOnConnect(t *testing.T) {
	hub := NewHub(logger.Nop())
	hub.PublishWatchlist([]contracts.WatchlistRow{{Ticker: "BBB"}})
	hub.PublishPick(contracts.FinalPickRecord{Ticker: "BBB", IsFinal: true})

	srv := httptest.NewServer(newTestRouter(t, hub, nil))
	defer srv.Close()

	conn := dial(t, srv)
	assert.Equal(t, MessageWatchlist, readMessage(t, conn)["type"])
	assert.Equal(t, MessagePick, readMessage(t, conn)["type"])
}

func TestHub_Disconnect(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(newTestRouter(t, hub, nil))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// publishing with no subscribers must not block
	hub.PublishWatchlist(nil)
}
