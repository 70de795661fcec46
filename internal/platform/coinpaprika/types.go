package coinpaprika

import "github.com/alanyoungcy/marketd/internal/domain"

// APITicker is the raw shape of one entry in the /v1/tickers response. All
// quote fields are optional in practice; absence maps to 0.
type APITicker struct {
	ID     string              `json:"id"`
	Symbol string              `json:"symbol"`
	Name   string              `json:"name"`
	Quotes map[string]APIQuote `json:"quotes"`
}

// APIQuote holds the per-currency quote values.
type APIQuote struct {
	Price           float64 `json:"price"`
	Volume24h       float64 `json:"volume_24h"`
	PercentChange24 float64 `json:"percent_change_24h"`
}

// ToDomainCoin maps an APITicker to the normalized coin shape. CoinPaprika
// serves no sparkline, so it is always empty from this source, and no image
// URL is available.
func (t APITicker) ToDomainCoin() domain.Coin {
	coin := domain.Coin{
		Symbol: domain.NormalizeSymbol(t.Symbol),
		Name:   t.Name,
	}
	if q, ok := t.Quotes["USD"]; ok {
		coin.Price = q.Price
		coin.Volume = q.Volume24h
		coin.DailyChange = q.PercentChange24
	}
	return coin
}
