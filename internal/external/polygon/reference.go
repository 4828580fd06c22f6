package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/gapscan/internal/contracts"
)

type tickerDetailsResponse struct {
	Status  string `json:"status"`
	Results struct {
		Ticker      string `json:"ticker"`
		Market      string `json:"market"`
		Type        string `json:"type"`
		Active      bool   `json:"active"`
		DelistedUTC string `json:"delisted_utc"`
	} `json:"results"`
}

// TickerDetails looks up reference data for one ticker.
// A delisted ticker is reported inactive.
func (c *Client) TickerDetails(ctx context.Context, ticker string) (*contracts.TickerDetails, error) {
	var resp tickerDetailsResponse
	if err := c.getJSON(ctx, c.buildURL("/v3/reference/tickers/"+url.PathEscape(ticker), nil), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("%w: ticker %s not found (status %s)", contracts.ErrDataFetch, ticker, resp.Status)
	}

	r := resp.Results
	return &contracts.TickerDetails{
		Ticker: r.Ticker,
		Market: strings.ToLower(r.Market),
		Type:   strings.ToUpper(r.Type),
		Active: r.Active && r.DelistedUTC == "",
	}, nil
}
