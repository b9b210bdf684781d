package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/traderdesk/paper-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache. Reads of wallets and trade history check Redis
// first then fall back to the primary; any transaction invalidates the
// user's cached state so the next read re-populates.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) EnsureWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := s.primary.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cacheWallet(ctx, w)
	return w, nil
}

// Transact passes through to the primary and invalidates the user's
// cached wallet and trade history on success.
func (s *CachedStore) Transact(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error {
	if err := s.primary.Transact(ctx, userID, fn); err != nil {
		return err
	}
	s.rdb.Del(ctx, walletKey(userID), tradesKey(userID))
	return nil
}

func (s *CachedStore) WalletByUser(ctx context.Context, userID string) (*model.Wallet, error) {
	data, err := s.rdb.Get(ctx, walletKey(userID)).Bytes()
	if err == nil {
		var w model.Wallet
		if json.Unmarshal(data, &w) == nil {
			return &w, nil
		}
	}

	w, err := s.primary.WalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cacheWallet(ctx, w)
	return w, nil
}

func (s *CachedStore) TradesByUser(ctx context.Context, userID string) ([]model.Trade, error) {
	data, err := s.rdb.Get(ctx, tradesKey(userID)).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	trades, err := s.primary.TradesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, tradesKey(userID), data, s.ttl)
	}
	return trades, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) OrdersByUser(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	return s.primary.OrdersByUser(ctx, userID, limit)
}

func (s *CachedStore) LedgerByWallet(ctx context.Context, walletID string) ([]model.LedgerEntry, error) {
	return s.primary.LedgerByWallet(ctx, walletID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheWallet(ctx context.Context, w *model.Wallet) {
	if data, err := json.Marshal(w); err == nil {
		s.rdb.Set(ctx, walletKey(w.UserID), data, s.ttl)
	}
}

func walletKey(uid string) string { return fmt.Sprintf("wallet:%s", uid) }
func tradesKey(uid string) string { return fmt.Sprintf("trades:%s", uid) }
