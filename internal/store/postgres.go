package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/traderdesk/paper-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
// Transact locks the user's wallet row (SELECT ... FOR UPDATE) so that
// concurrent orders for the same user serialize on the cash balance.
type PostgresStore struct {
	pool         *pgxpool.Pool
	startingCash decimal.Decimal
}

// NewPostgresStore creates a new PostgreSQL-backed store. New wallets
// are seeded with startingCash and a matching DEPOSIT ledger entry.
func NewPostgresStore(pool *pgxpool.Pool, startingCash decimal.Decimal) *PostgresStore {
	return &PostgresStore{pool: pool, startingCash: startingCash}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL UNIQUE,
			currency   TEXT NOT NULL,
			cash       NUMERIC NOT NULL CHECK (cash >= 0),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS trades (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			side       TEXT NOT NULL,
			qty        NUMERIC NOT NULL,
			price      NUMERIC NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS trades_user_idx ON trades (user_id, created_at);
		CREATE TABLE IF NOT EXISTS orders (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			side         TEXT NOT NULL,
			type         TEXT NOT NULL,
			qty          NUMERIC NOT NULL,
			status       TEXT NOT NULL,
			filled_price NUMERIC NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at);
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id         TEXT PRIMARY KEY,
			wallet_id  TEXT NOT NULL,
			kind       TEXT NOT NULL,
			symbol     TEXT,
			qty        NUMERIC NOT NULL,
			price      NUMERIC NOT NULL,
			amount     NUMERIC NOT NULL,
			meta       JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS ledger_wallet_idx ON ledger_entries (wallet_id, created_at);
	`)
	return err
}

func (s *PostgresStore) EnsureWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet *model.Wallet
	err := s.Transact(ctx, userID, func(ctx context.Context, tx Tx) error {
		w, err := tx.EnsureWallet(ctx)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *PostgresStore) Transact(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer pgtx.Rollback(ctx) // no-op after commit

	tx := &pgTx{tx: pgtx, userID: userID, startingCash: s.startingCash}
	if err := fn(ctx, tx); err != nil {
		return translatePgErr(err)
	}

	if err := pgtx.Commit(ctx); err != nil {
		return translatePgErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// translatePgErr maps serialization failures and deadlocks to
// ErrTxConflict so the engine can retry the whole transaction.
func translatePgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", ErrTxConflict, pgErr.Message)
		}
	}
	return err
}

func (s *PostgresStore) WalletByUser(ctx context.Context, userID string) (*model.Wallet, error) {
	return scanWallet(s.pool.QueryRow(ctx,
		`SELECT id, user_id, currency, cash::TEXT, created_at, updated_at
		 FROM wallets WHERE user_id = $1`, userID))
}

func (s *PostgresStore) TradesByUser(ctx context.Context, userID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, side, qty::TEXT, price::TEXT, created_at
		 FROM trades WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) OrdersByUser(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, side, type, qty::TEXT, status, filled_price::TEXT, created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var qtyS, priceS string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Symbol, &o.Side, &o.Type,
			&qtyS, &o.Status, &priceS, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Qty, _ = decimal.NewFromString(qtyS)
		o.FilledPrice, _ = decimal.NewFromString(priceS)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) LedgerByWallet(ctx context.Context, walletID string) ([]model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, wallet_id, kind, COALESCE(symbol, ''),
		        qty::TEXT, price::TEXT, amount::TEXT, meta, created_at
		 FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at, id`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var qtyS, priceS, amountS string
		var metaRaw []byte
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Kind, &e.Symbol,
			&qtyS, &priceS, &amountS, &metaRaw, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Qty, _ = decimal.NewFromString(qtyS)
		e.Price, _ = decimal.NewFromString(priceS)
		e.Amount, _ = decimal.NewFromString(amountS)
		if len(metaRaw) > 0 {
			json.Unmarshal(metaRaw, &e.Meta)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// pgTx implements Tx on top of a pgx transaction.
type pgTx struct {
	tx           pgx.Tx
	userID       string
	startingCash decimal.Decimal
}

func (t *pgTx) EnsureWallet(ctx context.Context) (*model.Wallet, error) {
	w, err := scanWallet(t.tx.QueryRow(ctx,
		`SELECT id, user_id, currency, cash::TEXT, created_at, updated_at
		 FROM wallets WHERE user_id = $1 FOR UPDATE`, t.userID))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	// First touch: create the wallet and its starting deposit. The
	// unique constraint on user_id guards the race; the loser's insert
	// affects zero rows and the re-read below returns the winner's row.
	now := time.Now().UTC()
	walletID := uuid.New().String()
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO wallets (id, user_id, currency, cash, created_at, updated_at)
		 VALUES ($1, $2, 'USD', $3::NUMERIC, $4, $4)
		 ON CONFLICT (user_id) DO NOTHING`,
		walletID, t.userID, t.startingCash.String(), now)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() == 1 {
		meta, _ := json.Marshal(map[string]string{
			"reason": "Paper default deposit",
			"amount": t.startingCash.String(),
		})
		_, err = t.tx.Exec(ctx,
			`INSERT INTO ledger_entries (id, wallet_id, kind, symbol, qty, price, amount, meta, created_at)
			 VALUES ($1, $2, $3, NULL, 0, 0, $4::NUMERIC, $5, $6)`,
			uuid.New().String(), walletID, model.LedgerKindDeposit,
			t.startingCash.String(), meta, now)
		if err != nil {
			return nil, err
		}
	}

	return scanWallet(t.tx.QueryRow(ctx,
		`SELECT id, user_id, currency, cash::TEXT, created_at, updated_at
		 FROM wallets WHERE user_id = $1 FOR UPDATE`, t.userID))
}

func (t *pgTx) UpdateWalletCash(ctx context.Context, walletID string, cash decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE wallets SET cash = $2::NUMERIC, updated_at = $3 WHERE id = $1`,
		walletID, cash.String(), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (t *pgTx) TradesByUser(ctx context.Context) ([]model.Trade, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, user_id, symbol, side, qty::TEXT, price::TEXT, created_at
		 FROM trades WHERE user_id = $1 ORDER BY created_at, id`, t.userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (t *pgTx) InsertTrade(ctx context.Context, tr *model.Trade) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO trades (id, user_id, symbol, side, qty, price, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7)`,
		tr.ID, tr.UserID, tr.Symbol, tr.Side,
		tr.Qty.String(), tr.Price.String(), tr.CreatedAt)
	return err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, symbol, side, type, qty, status, filled_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8::NUMERIC, $9)`,
		o.ID, o.UserID, o.Symbol, o.Side, o.Type,
		o.Qty.String(), o.Status, o.FilledPrice.String(), o.CreatedAt)
	return err
}

func (t *pgTx) InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	var meta []byte
	if e.Meta != nil {
		meta, _ = json.Marshal(e.Meta)
	}
	var symbol any
	if e.Symbol != "" {
		symbol = e.Symbol
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ledger_entries (id, wallet_id, kind, symbol, qty, price, amount, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8, $9)`,
		e.ID, e.WalletID, e.Kind, symbol,
		e.Qty.String(), e.Price.String(), e.Amount.String(), meta, e.CreatedAt)
	return err
}

// --- Scan helpers ---

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	var cashS string
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &cashS, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	w.Cash, _ = decimal.NewFromString(cashS)
	return &w, nil
}

func scanTrades(rows pgx.Rows) ([]model.Trade, error) {
	var trades []model.Trade
	for rows.Next() {
		var tr model.Trade
		var qtyS, priceS string
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Symbol, &tr.Side,
			&qtyS, &priceS, &tr.CreatedAt); err != nil {
			return nil, err
		}
		tr.Qty, _ = decimal.NewFromString(qtyS)
		tr.Price, _ = decimal.NewFromString(priceS)
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}
