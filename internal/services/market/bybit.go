// Package market implements the exchange-facing data sources: current ticker
// snapshots and hourly kline volume aggregates from the Bybit V5 API.
package market

import (
	"context"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"bybit-volume-scanner/internal/domain"
	"bybit-volume-scanner/pkg/retrier"
)

// Bybit caps kline responses at 1000 entries, more than enough for an hourly
// lookback of any sane timeframe.
const klineRequestLimit = 1000

// BybitMarket fetches tickers and hourly volume aggregates from Bybit.
// Transient API failures are retried with backoff before surfacing.
type BybitMarket struct {
	client  *bybit.Client
	retrier *retrier.Retrier
}

// NewBybitMarket creates a market data source backed by the given client.
func NewBybitMarket(client *bybit.Client) *BybitMarket {
	return &BybitMarket{
		client: client,
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(500*time.Millisecond),
		),
	}
}

// GetTickers fetches all ticker snapshots for the category.
func (m *BybitMarket) GetTickers(ctx context.Context, category domain.Category) ([]domain.Ticker, error) {
	result, err := retrier.DoWithData(m.retrier, ctx, func(ctx context.Context) (*bybit.V5GetTickersResponse, error) {
		return m.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
			Category: bybit.CategoryV5(category),
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s tickers from Bybit", category)
	}
	if result == nil {
		return nil, errors.Errorf("empty ticker result from Bybit for category %s", category)
	}

	var tickers []domain.Ticker
	if category == domain.CategorySpot {
		tickers = make([]domain.Ticker, 0, len(result.Result.Spot.List))
		for _, item := range result.Result.Spot.List {
			ticker, err := newTicker(string(item.Symbol), item.Volume24H, item.LastPrice, item.Price24HPcnt)
			if err != nil {
				return nil, err
			}
			tickers = append(tickers, ticker)
		}

		return tickers, nil
	}

	tickers = make([]domain.Ticker, 0, len(result.Result.LinearInverse.List))
	for _, item := range result.Result.LinearInverse.List {
		ticker, err := newTicker(string(item.Symbol), item.Volume24H, item.LastPrice, item.Price24HPcnt)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, ticker)
	}

	return tickers, nil
}

func newTicker(symbol, volume24h, lastPrice, priceChangePct string) (domain.Ticker, error) {
	volume, err := decimal.NewFromString(volume24h)
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(err, "parse 24h volume for %s", symbol)
	}

	return domain.Ticker{
		Symbol:            symbol,
		Volume24h:         volume.InexactFloat64(),
		LastPrice:         lastPrice,
		PriceChangePct24h: priceChangePct,
	}, nil
}

// HourlyVolumeAvg computes the mean volume of hourly klines over the last
// `hours` hours. Returns 0 with a nil error when the exchange has no usable
// bars for the symbol; callers treat 0 as "skip".
func (m *BybitMarket) HourlyVolumeAvg(ctx context.Context, symbol string, category domain.Category, hours int) (float64, error) {
	end := time.Now().UnixMilli()
	start := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	limit := klineRequestLimit

	result, err := retrier.DoWithData(m.retrier, ctx, func(ctx context.Context) (*bybit.V5GetKlineResponse, error) {
		return m.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: bybit.CategoryV5(category),
			Symbol:   bybit.SymbolV5(symbol),
			Interval: bybit.Interval60,
			Start:    &start,
			End:      &end,
			Limit:    &limit,
		})
	})
	if err != nil {
		return 0, errors.Wrapf(err, "fetch hourly klines from Bybit for %s", symbol)
	}
	if result == nil {
		return 0, errors.Errorf("empty kline result from Bybit for %s", symbol)
	}

	sum := decimal.Zero
	count := 0
	for i, kline := range result.Result.List {
		if kline.Volume == "" {
			continue
		}

		volume, err := decimal.NewFromString(kline.Volume)
		if err != nil {
			return 0, errors.Wrapf(err, "parse kline volume at index %d for %s", i, symbol)
		}

		sum = sum.Add(volume)
		count++
	}

	if count == 0 {
		return 0, nil
	}

	return sum.Div(decimal.NewFromInt(int64(count))).InexactFloat64(), nil
}
