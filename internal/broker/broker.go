// Package broker proxies a live brokerage account for the web app's
// broker pages. The engine never depends on this package; it exists so
// the same service can serve both the paper ledger and the user's real
// (paper-mode) brokerage data.
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a snapshot of the brokerage account's financial metrics.
type Account struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
}

// Order is a brokerage order as shown on the broker pages.
type Order struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Qty         decimal.Decimal `json:"qty"`
	Side        string          `json:"side"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Position is a brokerage position as shown on the broker pages.
type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
}

// Client abstracts the brokerage operations the proxy needs. Configured
// explicitly and injected — never a package-level singleton.
type Client interface {
	// Name returns the broker identifier (e.g. "alpaca").
	Name() string

	// GetAccount returns a snapshot of the account's financial metrics.
	GetAccount(ctx context.Context) (*Account, error)

	// GetOrders returns up to limit recent orders, newest first.
	GetOrders(ctx context.Context, limit int) ([]Order, error)

	// GetPositions returns all current positions held at the brokerage.
	GetPositions(ctx context.Context) ([]Position, error)
}
