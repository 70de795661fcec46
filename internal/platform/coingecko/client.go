// Package coingecko implements the primary market-data provider against the
// CoinGecko v3 REST API.
package coingecko

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

// DefaultBaseURL is the public CoinGecko API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Client is the REST client for the CoinGecko markets and global endpoints.
// It is stateless beyond the embedded http.Client and safe for concurrent
// use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new CoinGecko client. An empty baseURL selects
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
	return "CoinGecko"
}

// FetchCoins returns the top markets by capitalization, normalized. The query
// shape is fixed: USD quotes, market-cap descending, first page of 100, with
// the 7-day sparkline included.
func (c *Client) FetchCoins(ctx context.Context) ([]domain.Coin, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", "100")
	params.Set("page", "1")
	params.Set("sparkline", "true")

	body, err := c.doGet(ctx, "/coins/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("coingecko: get markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("coingecko: decode markets: %w", errors.Join(domain.ErrDecode, err))
	}

	coins := make([]domain.Coin, 0, len(apiMarkets))
	for i := range apiMarkets {
		coins = append(coins, apiMarkets[i].ToDomainCoin())
	}
	return coins, nil
}

// FetchGlobal returns the aggregate market stats, normalized. The USD entries
// of the nested maps are the only values consumed.
func (c *Client) FetchGlobal(ctx context.Context) (domain.GlobalStats, error) {
	body, err := c.doGet(ctx, "/global")
	if err != nil {
		return domain.GlobalStats{}, fmt.Errorf("coingecko: get global: %w", err)
	}

	var apiGlobal APIGlobal
	if err := json.Unmarshal(body, &apiGlobal); err != nil {
		return domain.GlobalStats{}, fmt.Errorf("coingecko: decode global: %w", errors.Join(domain.ErrDecode, err))
	}

	return domain.GlobalStats{
		TotalMarketCap:     apiGlobal.Data.TotalMarketCap["usd"],
		TotalVolume:        apiGlobal.Data.TotalVolume["usd"],
		BTCDominance:       apiGlobal.Data.MarketCapPercentage["btc"],
		MarketCapChange24h: apiGlobal.Data.MarketCapChange24h,
		UpdatedAt:          time.Now().UTC(),
	}, nil
}

// doGet performs a GET against the API root plus path and returns the raw
// body. Failures are classified into the domain error taxonomy.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", c.baseURL+path, domain.ErrMalformedEndpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", errors.Join(domain.ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", errors.Join(domain.ErrTransport, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrBadStatus)
	}

	return body, nil
}

// Compile-time interface checks.
var (
	_ domain.CoinProvider   = (*Client)(nil)
	_ domain.GlobalProvider = (*Client)(nil)
)
