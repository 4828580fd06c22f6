package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/pkg/httputil"
	"github.com/wonny/gapscan/pkg/logger"
)

// DefaultBaseURL is the public REST endpoint
const DefaultBaseURL = "https://api.polygon.io"

// Client handles communication with the Polygon REST API
// ⭐ SSOT: Polygon API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new Polygon client.
// Rate limiting and retries belong to httpClient.
func NewClient(httpClient *httputil.Client, apiKey, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

var (
	_ contracts.MarketDataProvider = (*Client)(nil)
	_ contracts.ReferenceProvider  = (*Client)(nil)
)

// buildURL joins path and params and appends the API key
func (c *Client) buildURL(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	return fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
}

// withKey appends the API key to a pagination URL (next_url omits it)
func (c *Client) withKey(next string) string {
	sep := "?"
	if strings.Contains(next, "?") {
		sep = "&"
	}
	return next + sep + "apiKey=" + url.QueryEscape(c.apiKey)
}

func (c *Client) getJSON(ctx context.Context, fullURL string, dest interface{}) error {
	if err := c.httpClient.GetJSON(ctx, fullURL, dest); err != nil {
		return fmt.Errorf("%w: %w", contracts.ErrDataFetch, err)
	}
	return nil
}
