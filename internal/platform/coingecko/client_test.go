package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketd/internal/domain"
)

const marketsBody = `[
	{
		"id": "bitcoin",
		"symbol": "btc",
		"name": "Bitcoin",
		"image": "https://img.example/btc.png",
		"current_price": 30123.45,
		"total_volume": 18000000000,
		"price_change_percentage_24h": 5.1,
		"sparkline_in_7d": {"price": [29000, 29500, 30123.45]}
	},
	{
		"id": "newcoin",
		"symbol": "new",
		"name": "NewCoin",
		"current_price": 0.002,
		"total_volume": 1200
	}
]`

const globalBody = `{
	"data": {
		"total_market_cap": {"usd": 1200000000000, "eur": 1100000000000},
		"total_volume": {"usd": 80000000000},
		"market_cap_percentage": {"btc": 48.5, "eth": 18.2},
		"market_cap_change_percentage_24h_usd": -1.3
	}
}`

func TestFetchCoins(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/markets", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	coins, err := client.FetchCoins(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 2)

	t.Run("QueryShapeIsFixed", func(t *testing.T) {
		assert.Contains(t, gotQuery, "vs_currency=usd")
		assert.Contains(t, gotQuery, "order=market_cap_desc")
		assert.Contains(t, gotQuery, "per_page=100")
		assert.Contains(t, gotQuery, "page=1")
		assert.Contains(t, gotQuery, "sparkline=true")
	})

	t.Run("FullRecordIsNormalized", func(t *testing.T) {
		btc := coins[0]
		assert.Equal(t, "BTC", btc.Symbol, "symbol is uppercased")
		assert.Equal(t, "Bitcoin", btc.Name)
		assert.Equal(t, 30123.45, btc.Price)
		assert.Equal(t, 5.1, btc.DailyChange)
		assert.Equal(t, []float64{29000, 29500, 30123.45}, btc.Sparkline)
		assert.Equal(t, "https://img.example/btc.png", btc.ImageURL)
		assert.False(t, btc.Favorite, "providers never supply the favorite flag")
	})

	t.Run("MissingOptionalFieldsDefault", func(t *testing.T) {
		thin := coins[1]
		assert.Equal(t, "NEW", thin.Symbol)
		assert.Zero(t, thin.DailyChange)
		assert.Empty(t, thin.Sparkline)
	})
}

func TestFetchGlobal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/global", r.URL.Path)
		w.Write([]byte(globalBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	stats, err := client.FetchGlobal(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.2e12, stats.TotalMarketCap, "only the usd entry is consumed")
	assert.Equal(t, 8e10, stats.TotalVolume)
	assert.Equal(t, 48.5, stats.BTCDominance)
	assert.Equal(t, -1.3, stats.MarketCapChange24h)
	assert.False(t, stats.UpdatedAt.IsZero())
}

func TestFetchCoinsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrBadStatus)
}

func TestFetchCoinsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestFetchCoinsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL)
	_, err := client.FetchCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestFetchCoinsHonorsContext(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.FetchCoins(ctx)
	assert.Error(t, err)
}

func TestNameAndDefaultBaseURL(t *testing.T) {
	client := NewClient("")
	assert.Equal(t, "CoinGecko", client.Name())
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}
