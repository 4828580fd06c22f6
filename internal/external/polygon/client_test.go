package polygon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/pkg/httputil"
	"github.com/wonny/gapscan/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	hc := httputil.New(logger.Nop(), 5*time.Second).DisableRetry()
	return NewClient(hc, "test-key", baseURL, logger.Nop())
}

func TestFetchSnapshots_Paginates(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "/v3/snapshot", r.URL.Path)

		if r.URL.Query().Get("cursor") == "" {
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			fmt.Fprintf(w, `{"status":"OK","next_url":"%s/v3/snapshot?cursor=p2","results":[
				{"ticker":"AAA","last_updated":1772461800000000000,"session":{"price":12.5,"previous_close":10,"volume":1500000,"open":11}},
				{"ticker":"BBB","session":{"price":5}}
			]}`, srv.URL)
			return
		}
		fmt.Fprint(w, `{"status":"OK","results":[
			{"ticker":"CCC","session":{"price":0.8,"previous_close":0.7,"volume":100}},
			{"ticker":"DDD","session":{"price":3,"previous_close":2,"volume":10}}
		]}`)
	}))
	defer srv.Close()

	snaps, err := newTestClient(srv.URL).FetchSnapshots(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.Equal(t, "AAA", snaps[0].Ticker)
	require.NotNil(t, snaps[0].Price)
	assert.Equal(t, 12.5, *snaps[0].Price)
	assert.Equal(t, 11.0, *snaps[0].Open)
	assert.False(t, snaps[0].Timestamp.IsZero())

	assert.Nil(t, snaps[1].PrevClose, "omitted fields stay nil")
	assert.Equal(t, "CCC", snaps[2].Ticker)
}

func TestFetchSnapshots_ErrorIsDataFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"status":"NOT_AUTHORIZED"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSnapshots(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrDataFetch)

	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.NotContains(t, se.URL, "test-key")
}

func TestDailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/aggs/ticker/AAA/range/1/day/2026-01-01/2026-03-01", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("adjusted"))
		fmt.Fprint(w, `{"status":"OK","resultsCount":2,"results":[
			{"t":1767225600000,"o":10,"h":11,"l":9,"c":10.5,"v":1000},
			{"t":1767312000000,"o":10.5,"h":12,"l":10,"c":11.5,"v":2000}
		]}`)
	}))
	defer srv.Close()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	bars, err := newTestClient(srv.URL).DailyBars(context.Background(), "AAA", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Date.Equal(from))
	assert.Equal(t, 11.5, bars[1].Close)
	assert.Equal(t, 2000.0, bars[1].Volume)
}

func TestMinuteBars_UsesMillis(t *testing.T) {
	from := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/v2/aggs/ticker/AAA/range/1/minute/%d/%d", from.UnixMilli(), to.UnixMilli()), r.URL.Path)
		fmt.Fprintf(w, `{"status":"OK","results":[{"t":%d,"o":1,"h":2.5,"l":1,"c":2,"v":10}]}`, from.UnixMilli())
	}))
	defer srv.Close()

	bars, err := newTestClient(srv.URL).MinuteBars(context.Background(), "AAA", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 2.5, bars[0].High)
	assert.True(t, bars[0].Start.Equal(from))
}

func TestTickerDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/reference/tickers/AAA":
			fmt.Fprint(w, `{"status":"OK","results":{"ticker":"AAA","market":"stocks","type":"CS","active":true}}`)
		case "/v3/reference/tickers/OLD":
			fmt.Fprint(w, `{"status":"OK","results":{"ticker":"OLD","market":"OTC","type":"cs","active":true,"delisted_utc":"2025-01-01T00:00:00Z"}}`)
		default:
			fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	d, err := c.TickerDetails(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, "stocks", d.Market)
	assert.True(t, d.Active)

	d, err = c.TickerDetails(context.Background(), "OLD")
	require.NoError(t, err)
	assert.Equal(t, "otc", d.Market)
	assert.Equal(t, "CS", d.Type)
	assert.False(t, d.Active)

	_, err = c.TickerDetails(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, contracts.ErrDataFetch)
}
