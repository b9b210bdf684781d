// Package model defines the core domain types shared across the paper
// trading engine. All monetary values use shopspring/decimal — never
// float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order or trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the two supported sides.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// OrderType is the execution type of an order. Only market orders are
// supported: every order fills immediately at the oracle price.
type OrderType string

const OrderTypeMarket OrderType = "market"

// OrderStatus is the lifecycle state of an order. There is no pending
// state machine — orders are created already filled.
type OrderStatus string

const OrderStatusFilled OrderStatus = "filled"

// LedgerKind classifies a cash movement on a wallet.
type LedgerKind string

const (
	LedgerKindDeposit LedgerKind = "DEPOSIT"
	LedgerKindBuy     LedgerKind = "BUY"
	LedgerKindSell    LedgerKind = "SELL"
)

// Wallet holds a user's simulated cash balance. One wallet per user,
// created lazily on first touch and never deleted. Cash is mutated only
// inside a store transaction and is never negative.
type Wallet struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Currency  string          `json:"currency" db:"currency"` // fixed "USD"
	Cash      decimal.Decimal `json:"cash" db:"cash"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Trade is an immutable record of an executed fill. Once created these
// are never modified or deleted; insertion order is execution order.
type Trade struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Side      Side            `json:"side" db:"side"`
	Qty       decimal.Decimal `json:"qty" db:"qty"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Order is an immutable record of a placed order. In v1 each order
// corresponds 1:1 with one trade and is filled synchronously.
type Order struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Side        Side            `json:"side" db:"side"`
	Type        OrderType       `json:"type" db:"type"`
	Qty         decimal.Decimal `json:"qty" db:"qty"`
	Status      OrderStatus     `json:"status" db:"status"`
	FilledPrice decimal.Decimal `json:"filled_price" db:"filled_price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// LedgerEntry is an immutable audit record of a single cash movement.
// Amount is signed: negative for outflow (BUY), positive for inflow
// (DEPOSIT, SELL). Replaying all entries for a wallet reconstructs its
// cash balance exactly.
type LedgerEntry struct {
	ID        string            `json:"id" db:"id"`
	WalletID  string            `json:"wallet_id" db:"wallet_id"`
	Kind      LedgerKind        `json:"kind" db:"kind"`
	Symbol    string            `json:"symbol,omitempty" db:"symbol"` // empty for DEPOSIT
	Qty       decimal.Decimal   `json:"qty" db:"qty"`                 // zero for DEPOSIT
	Price     decimal.Decimal   `json:"price" db:"price"`             // zero for DEPOSIT
	Amount    decimal.Decimal   `json:"amount" db:"amount"`
	Meta      map[string]string `json:"meta,omitempty" db:"meta"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// Position is the net holding in one symbol, derived by folding the
// trade history. Positions are never stored; the trade log is ground
// truth.
type Position struct {
	Symbol      string          `json:"symbol"`
	Qty         decimal.Decimal `json:"qty"`
	AvgPrice    decimal.Decimal `json:"avg_price"`    // average entry price (average-cost)
	MarkPrice   decimal.Decimal `json:"mark_price"`   // oracle price, or AvgPrice fallback
	MarketValue decimal.Decimal `json:"market_value"` // Qty * MarkPrice
}

// Balance is the account summary returned to the app.
type Balance struct {
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	BuyingPower    decimal.Decimal `json:"buying_power"` // 2x cash, paper rule
	Currency       string          `json:"currency"`
	Mode           string          `json:"mode"` // always "paper"
}
