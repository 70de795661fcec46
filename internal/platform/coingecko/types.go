package coingecko

import "github.com/alanyoungcy/marketd/internal/domain"

// APIMarket is the raw shape of one entry in the /coins/markets response.
// PriceChange24h and Sparkline are pointers because CoinGecko omits them for
// thinly traded listings; absence maps to 0 and an empty slice respectively.
type APIMarket struct {
	ID             string       `json:"id"`
	Symbol         string       `json:"symbol"`
	Name           string       `json:"name"`
	Image          string       `json:"image"`
	CurrentPrice   float64      `json:"current_price"`
	TotalVolume    float64      `json:"total_volume"`
	PriceChange24h *float64     `json:"price_change_percentage_24h"`
	Sparkline7d    *APISparkline `json:"sparkline_in_7d"`
}

// APISparkline is the nested 7-day price series.
type APISparkline struct {
	Price []float64 `json:"price"`
}

// ToDomainCoin maps an APIMarket to the normalized coin shape.
func (m APIMarket) ToDomainCoin() domain.Coin {
	coin := domain.Coin{
		Symbol:   domain.NormalizeSymbol(m.Symbol),
		Name:     m.Name,
		Price:    m.CurrentPrice,
		Volume:   m.TotalVolume,
		ImageURL: m.Image,
	}
	if m.PriceChange24h != nil {
		coin.DailyChange = *m.PriceChange24h
	}
	if m.Sparkline7d != nil && len(m.Sparkline7d.Price) > 0 {
		coin.Sparkline = m.Sparkline7d.Price
	}
	return coin
}

// APIGlobal is the raw shape of the /global response. The interesting values
// are nested one level down and keyed by currency.
type APIGlobal struct {
	Data APIGlobalData `json:"data"`
}

// APIGlobalData holds the nested global aggregates.
type APIGlobalData struct {
	TotalMarketCap      map[string]float64 `json:"total_market_cap"`
	TotalVolume         map[string]float64 `json:"total_volume"`
	MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	MarketCapChange24h  float64            `json:"market_cap_change_percentage_24h_usd"`
}
