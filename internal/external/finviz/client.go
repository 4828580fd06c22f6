package finviz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/pkg/httputil"
	"github.com/wonny/gapscan/pkg/logger"
)

// DefaultBaseURL is the public quote site
const DefaultBaseURL = "https://finviz.com"

// UserAgent is sent with every request; the site rejects the Go default
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// Client scrapes the quote page news table
// ⭐ SSOT: 카탈리스트 헤드라인은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new catalyst client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient.WithHeader("User-Agent", UserAgent),
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

var _ contracts.CatalystSource = (*Client)(nil)

// LatestHeadline returns the newest headline for ticker, "" when the page
// has no news
func (c *Client) LatestHeadline(ctx context.Context, ticker string) (string, error) {
	html, err := c.fetchHTML(ctx, "/quote.ashx", url.Values{"t": {ticker}})
	if err != nil {
		return "", err
	}

	headline, err := parseHeadline(html)
	if err != nil {
		return "", err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":   ticker,
		"headline": headline,
	}).Debug("Fetched catalyst")
	return headline, nil
}

func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (string, error) {
	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("%w: HTTP request failed: %w", contracts.ErrDataFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status code: %d", contracts.ErrDataFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

// parseHeadline reads the first link of the news table
func parseHeadline(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse quote page: %w", err)
	}

	var headline string
	doc.Find("#news-table tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		link := row.Find("a.tab-link-news")
		if link.Length() == 0 {
			link = row.Find("a").First()
		}
		headline = strings.Join(strings.Fields(link.First().Text()), " ")
		return headline == ""
	})

	return headline, nil
}
