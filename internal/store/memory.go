package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/traderdesk/paper-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Concurrency model: one mutex per user serializes Transact calls for
// that user; a store-wide mutex guards the maps themselves. Writes made
// inside a transaction are staged and applied only when the callback
// succeeds, so a failed transaction leaves no partial state.
type MemoryStore struct {
	startingCash decimal.Decimal

	mu        sync.RWMutex
	userLocks map[string]*sync.Mutex
	wallets   map[string]*model.Wallet // keyed by userID
	trades    []model.Trade
	orders    []model.Order
	ledger    []model.LedgerEntry
}

// NewMemoryStore creates a new in-memory store. New wallets are seeded
// with startingCash and a matching DEPOSIT ledger entry.
func NewMemoryStore(startingCash decimal.Decimal) *MemoryStore {
	return &MemoryStore{
		startingCash: startingCash,
		userLocks:    make(map[string]*sync.Mutex),
		wallets:      make(map[string]*model.Wallet),
	}
}

// userLock returns the per-user mutex, creating it on first use.
func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

func (s *MemoryStore) EnsureWallet(ctx context.Context, userID string) (*model.Wallet, error) {
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

func (s *MemoryStore) Transact(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	tx := &memTx{store: s, userID: userID}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.apply()
	return nil
}

func (s *MemoryStore) WalletByUser(_ context.Context, userID string) (*model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	copy := *w
	return &copy, nil
}

func (s *MemoryStore) TradesByUser(_ context.Context, userID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) OrdersByUser(_ context.Context, userID string, limit int) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Order
	for i := len(s.orders) - 1; i >= 0; i-- { // newest first
		if s.orders[i].UserID == userID {
			result = append(result, s.orders[i])
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (s *MemoryStore) LedgerByWallet(_ context.Context, walletID string) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.LedgerEntry
	for _, e := range s.ledger {
		if e.WalletID == walletID {
			result = append(result, e)
		}
	}
	return result, nil
}

// memTx stages writes for one user's transaction. The per-user lock is
// held by Transact for the whole callback, so reads through the tx are
// stable and staged state is only visible to this transaction.
type memTx struct {
	store  *MemoryStore
	userID string

	wallet    *model.Wallet // staged wallet state (created or cash-updated)
	created   bool          // wallet staged for creation
	newTrades []model.Trade
	newOrders []model.Order
	newLedger []model.LedgerEntry
}

func (tx *memTx) EnsureWallet(_ context.Context) (*model.Wallet, error) {
	if tx.wallet != nil {
		copy := *tx.wallet
		return &copy, nil
	}

	tx.store.mu.RLock()
	existing, ok := tx.store.wallets[tx.userID]
	tx.store.mu.RUnlock()

	if ok {
		copy := *existing
		tx.wallet = &copy
		copy2 := copy
		return &copy2, nil
	}

	now := time.Now().UTC()
	wallet := &model.Wallet{
		ID:        uuid.New().String(),
		UserID:    tx.userID,
		Currency:  "USD",
		Cash:      tx.store.startingCash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx.wallet = wallet
	tx.created = true
	tx.newLedger = append(tx.newLedger, model.LedgerEntry{
		ID:       uuid.New().String(),
		WalletID: wallet.ID,
		Kind:     model.LedgerKindDeposit,
		Amount:   tx.store.startingCash,
		Meta: map[string]string{
			"reason": "Paper default deposit",
			"amount": tx.store.startingCash.String(),
		},
		CreatedAt: now,
	})

	copy := *wallet
	return &copy, nil
}

func (tx *memTx) UpdateWalletCash(_ context.Context, walletID string, cash decimal.Decimal) error {
	if tx.wallet == nil || tx.wallet.ID != walletID {
		return ErrWalletNotFound
	}
	tx.wallet.Cash = cash
	tx.wallet.UpdatedAt = time.Now().UTC()
	return nil
}

func (tx *memTx) TradesByUser(ctx context.Context) ([]model.Trade, error) {
	committed, err := tx.store.TradesByUser(ctx, tx.userID)
	if err != nil {
		return nil, err
	}
	return append(committed, tx.newTrades...), nil
}

func (tx *memTx) InsertTrade(_ context.Context, t *model.Trade) error {
	tx.newTrades = append(tx.newTrades, *t)
	return nil
}

func (tx *memTx) InsertOrder(_ context.Context, o *model.Order) error {
	tx.newOrders = append(tx.newOrders, *o)
	return nil
}

func (tx *memTx) InsertLedgerEntry(_ context.Context, e *model.LedgerEntry) error {
	tx.newLedger = append(tx.newLedger, *e)
	return nil
}

// apply commits staged writes to the store. Called only after the
// transaction callback succeeded.
func (tx *memTx) apply() {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	if tx.wallet != nil {
		if tx.created {
			copy := *tx.wallet
			tx.store.wallets[tx.userID] = &copy
		} else if w, ok := tx.store.wallets[tx.userID]; ok {
			w.Cash = tx.wallet.Cash
			w.UpdatedAt = tx.wallet.UpdatedAt
		}
	}
	tx.store.trades = append(tx.store.trades, tx.newTrades...)
	tx.store.orders = append(tx.store.orders, tx.newOrders...)
	tx.store.ledger = append(tx.store.ledger, tx.newLedger...)
}
