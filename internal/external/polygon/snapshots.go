package polygon

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/gapscan/internal/contracts"
)

// maxPageSize is the v3 snapshot page limit
const maxPageSize = 250

type snapshotResponse struct {
	Status  string           `json:"status"`
	Results []snapshotResult `json:"results"`
	NextURL string           `json:"next_url"`
}

type snapshotResult struct {
	Ticker      string          `json:"ticker"`
	Type        string          `json:"type"`
	LastUpdated int64           `json:"last_updated"` // ns
	Session     snapshotSession `json:"session"`
}

type snapshotSession struct {
	Price         *float64 `json:"price"`
	PreviousClose *float64 `json:"previous_close"`
	Volume        *float64 `json:"volume"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Close         *float64 `json:"close"`
}

// FetchSnapshots pages through the v3 universal snapshot until limit
// records are collected. Session fields carry extended-hours prices.
func (c *Client) FetchSnapshots(ctx context.Context, limit int) ([]contracts.RawSnapshot, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("ticker.gte", "A")
	params.Set("type", "stocks")
	params.Set("limit", strconv.Itoa(min(maxPageSize, limit)))

	out := make([]contracts.RawSnapshot, 0, limit)
	next := c.buildURL("/v3/snapshot", params)
	pages := 0

	for next != "" && len(out) < limit {
		var resp snapshotResponse
		if err := c.getJSON(ctx, next, &resp); err != nil {
			return nil, err
		}
		pages++

		for _, r := range resp.Results {
			out = append(out, toRaw(r))
			if len(out) >= limit {
				break
			}
		}

		next = ""
		if resp.NextURL != "" && len(resp.Results) > 0 {
			next = c.withKey(resp.NextURL)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"snapshots": len(out),
		"pages":     pages,
	}).Debug("Fetched snapshots")

	return out, nil
}

func toRaw(r snapshotResult) contracts.RawSnapshot {
	raw := contracts.RawSnapshot{
		Ticker:    r.Ticker,
		Price:     r.Session.Price,
		PrevClose: r.Session.PreviousClose,
		Volume:    r.Session.Volume,
		Open:      r.Session.Open,
		High:      r.Session.High,
		Low:       r.Session.Low,
		Close:     r.Session.Close,
	}
	if r.LastUpdated > 0 {
		raw.Timestamp = time.Unix(0, r.LastUpdated)
	}
	return raw
}
