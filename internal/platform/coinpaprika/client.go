// Package coinpaprika implements the fallback coin provider against the
// CoinPaprika v1 REST API.
package coinpaprika

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// DefaultBaseURL is the public CoinPaprika API root.
const DefaultBaseURL = "https://api.coinpaprika.com/v1"

// Client is the REST client for the CoinPaprika tickers endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new CoinPaprika client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider name used in provenance messages.
func (c *Client) Name() string {
	return "CoinPaprika"
}

// FetchCoins returns all USD-quoted tickers, normalized.
func (c *Client) FetchCoins(ctx context.Context) ([]domain.Coin, error) {
	params := url.Values{}
	params.Set("quotes", "USD")

	u, err := url.Parse(c.baseURL + "/tickers?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("coinpaprika: parse url: %w", domain.ErrMalformedEndpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("coinpaprika: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coinpaprika: do request: %w", errors.Join(domain.ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coinpaprika: read body: %w", errors.Join(domain.ErrTransport, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("coinpaprika: status %d: %w", resp.StatusCode, domain.ErrBadStatus)
	}

	var tickers []APITicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("coinpaprika: decode tickers: %w", errors.Join(domain.ErrDecode, err))
	}

	coins := make([]domain.Coin, 0, len(tickers))
	for i := range tickers {
		coins = append(coins, tickers[i].ToDomainCoin())
	}
	return coins, nil
}

// Compile-time interface check.
var _ domain.CoinProvider = (*Client)(nil)
