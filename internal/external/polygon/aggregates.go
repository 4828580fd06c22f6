package polygon

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
)

type aggResponse struct {
	Status       string   `json:"status"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
	NextURL      string   `json:"next_url"`
}

type aggBar struct {
	T int64   `json:"t"` // window start, ms
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// DailyBars returns adjusted daily bars between from and to (dates inclusive)
func (c *Client) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.DailyBar, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(ticker), from.Format("2006-01-02"), to.Format("2006-01-02"))

	bars, err := c.aggregates(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.DailyBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, contracts.DailyBar{
			Date:   time.UnixMilli(b.T).UTC(),
			Open:   b.O,
			High:   b.H,
			Low:    b.L,
			Close:  b.C,
			Volume: b.V,
		})
	}
	return out, nil
}

// MinuteBars returns 1-minute bars between from and to (ms precision)
func (c *Client) MinuteBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.MinuteBar, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/minute/%d/%d",
		url.PathEscape(ticker), from.UnixMilli(), to.UnixMilli())

	bars, err := c.aggregates(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.MinuteBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, contracts.MinuteBar{
			Start:  time.UnixMilli(b.T),
			Open:   b.O,
			High:   b.H,
			Low:    b.L,
			Close:  b.C,
			Volume: b.V,
		})
	}
	return out, nil
}

func (c *Client) aggregates(ctx context.Context, path string) ([]aggBar, error) {
	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", "50000")

	var bars []aggBar
	next := c.buildURL(path, params)
	for next != "" {
		var resp aggResponse
		if err := c.getJSON(ctx, next, &resp); err != nil {
			return nil, err
		}
		bars = append(bars, resp.Results...)

		next = ""
		if resp.NextURL != "" && len(resp.Results) > 0 {
			next = c.withKey(resp.NextURL)
		}
	}
	return bars, nil
}
