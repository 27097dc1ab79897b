package domain

// Ticker is a single symbol snapshot from the exchange ticker feed.
// LastPrice and PriceChangePct24h are kept as the raw exchange strings since
// they are only displayed, never computed on.
type Ticker struct {
	Symbol            string
	Volume24h         float64
	LastPrice         string
	PriceChangePct24h string
}
