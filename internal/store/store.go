// Package store defines the persistence interface for the paper trading
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing and development).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/traderdesk/paper-engine/internal/model"
)

// Sentinel errors returned by implementations. Callers match with
// errors.Is and translate to user-facing error kinds.
var (
	// ErrWalletNotFound indicates a wallet read for a user or wallet ID
	// that does not exist. Unreachable after EnsureWallet; treated as an
	// internal-consistency failure by the engine.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTxConflict indicates the transaction lost a concurrency race
	// (serialization failure or deadlock) and can be retried as a whole.
	ErrTxConflict = errors.New("store transaction conflict")
)

// Store is the persistence interface. All writes that touch a wallet's
// cash happen inside Transact; Trade/Order/LedgerEntry rows are
// write-once and never mutated.
type Store interface {
	// EnsureWallet returns the wallet for userID, creating it with the
	// starting deposit (plus one DEPOSIT ledger entry) on first touch.
	// Safe under concurrent first-time calls: at most one wallet ever
	// exists per user; a lost race re-reads the winner's wallet.
	EnsureWallet(ctx context.Context, userID string) (*model.Wallet, error)

	// Transact runs fn atomically against the user's wallet aggregate.
	// The Tx view holds exclusive access to the wallet row for the
	// duration of fn; all writes are applied only if fn returns nil.
	// Calls for different users do not contend.
	Transact(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error

	// --- Read paths (no locking) ---

	// WalletByUser retrieves a user's wallet.
	WalletByUser(ctx context.Context, userID string) (*model.Wallet, error)

	// TradesByUser returns all trades for a user in execution order.
	TradesByUser(ctx context.Context, userID string) ([]model.Trade, error)

	// OrdersByUser returns up to limit orders for a user, newest first.
	OrdersByUser(ctx context.Context, userID string, limit int) ([]model.Order, error)

	// LedgerByWallet returns all ledger entries for a wallet in
	// insertion order.
	LedgerByWallet(ctx context.Context, walletID string) ([]model.LedgerEntry, error)
}

// Tx is the transactional view handed to Transact callbacks. The wallet
// it exposes is locked for update until the callback returns.
type Tx interface {
	// EnsureWallet returns the locked wallet for the transaction's user,
	// creating it with the starting deposit if missing.
	EnsureWallet(ctx context.Context) (*model.Wallet, error)

	// UpdateWalletCash sets the wallet's cash balance.
	UpdateWalletCash(ctx context.Context, walletID string, cash decimal.Decimal) error

	// TradesByUser returns the user's trades as of this transaction,
	// in execution order. Input to the position fold.
	TradesByUser(ctx context.Context) ([]model.Trade, error)

	// InsertTrade appends an immutable trade record.
	InsertTrade(ctx context.Context, t *model.Trade) error

	// InsertOrder appends an immutable order record.
	InsertOrder(ctx context.Context, o *model.Order) error

	// InsertLedgerEntry appends an immutable cash-movement record.
	InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error
}
