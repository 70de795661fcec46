package coinpaprika

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketd/internal/domain"
)

const tickersBody = `[
	{
		"id": "btc-bitcoin",
		"symbol": "btc",
		"name": "Bitcoin",
		"quotes": {"USD": {"price": 30050.1, "volume_24h": 17500000000, "percent_change_24h": 4.8}}
	},
	{
		"id": "odd-coin",
		"symbol": "odd",
		"name": "OddCoin",
		"quotes": {"EUR": {"price": 1.0}}
	}
]`

func TestFetchCoins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tickers", r.URL.Path)
		require.Equal(t, "USD", r.URL.Query().Get("quotes"))
		w.Write([]byte(tickersBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	coins, err := client.FetchCoins(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 2)

	t.Run("USDQuoteIsNormalized", func(t *testing.T) {
		btc := coins[0]
		assert.Equal(t, "BTC", btc.Symbol)
		assert.Equal(t, "Bitcoin", btc.Name)
		assert.Equal(t, 30050.1, btc.Price)
		assert.Equal(t, 1.75e10, btc.Volume)
		assert.Equal(t, 4.8, btc.DailyChange)
		assert.Empty(t, btc.Sparkline, "this source serves no sparkline")
		assert.Empty(t, btc.ImageURL)
	})

	t.Run("MissingUSDQuoteDefaultsToZero", func(t *testing.T) {
		odd := coins[1]
		assert.Equal(t, "ODD", odd.Symbol)
		assert.Zero(t, odd.Price)
		assert.Zero(t, odd.Volume)
		assert.Zero(t, odd.DailyChange)
	})
}

func TestFetchCoinsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrBadStatus)
}

func TestFetchCoinsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestFetchCoinsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestName(t *testing.T) {
	assert.Equal(t, "CoinPaprika", NewClient("").Name())
}
