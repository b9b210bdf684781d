package pricing

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Oracle = (*Alpaca)(nil)

// Alpaca resolves prices from the Alpaca market data API using the
// latest trade for the symbol.
type Alpaca struct {
	client *marketdata.Client
}

// NewAlpaca creates a live-quote oracle with explicit credentials.
func NewAlpaca(apiKey, apiSecret string) *Alpaca {
	return &Alpaca{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
	}
}

func (a *Alpaca) Price(_ context.Context, symbol string) (decimal.Decimal, error) {
	trade, err := a.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: no quote for %s", ErrUnavailable, symbol)
	}
	return decimal.NewFromFloat(trade.Price), nil
}
