// Package pricing supplies execution and mark prices for symbols.
//
// The engine depends only on the Oracle interface; the static table is
// used for development and tests, the Alpaca client for live quotes.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnavailable indicates no price could be resolved for a symbol.
// Callers may retry after backoff; the engine aborts the order with no
// side effects.
var ErrUnavailable = errors.New("price unavailable")

// Oracle resolves the current price for a symbol.
type Oracle interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Static is a fixed price table. Unknown symbols resolve to
// ErrUnavailable.
type Static struct {
	prices map[string]decimal.Decimal
}

// NewStatic creates a table-backed oracle from symbol→price pairs.
func NewStatic(prices map[string]decimal.Decimal) *Static {
	table := make(map[string]decimal.Decimal, len(prices))
	for sym, p := range prices {
		table[sym] = p
	}
	return &Static{prices: table}
}

// DefaultStatic returns a Static oracle seeded with a handful of
// well-known tickers, matching the paper product's mock quotes.
func DefaultStatic() *Static {
	return NewStatic(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
		"MSFT": decimal.NewFromInt(250),
		"GOOG": decimal.NewFromInt(150),
		"AMZN": decimal.NewFromInt(120),
		"TSLA": decimal.NewFromInt(200),
		"SPY":  decimal.NewFromInt(450),
	})
}

func (s *Static) Price(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := s.prices[symbol]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: no quote for %s", ErrUnavailable, symbol)
	}
	return p, nil
}
