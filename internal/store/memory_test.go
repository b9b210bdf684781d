package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traderdesk/paper-engine/internal/model"
	"github.com/traderdesk/paper-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestEnsureWallet_Bootstrap(t *testing.T) {
	ms := store.NewMemoryStore(d(50000))
	ctx := context.Background()

	w, err := ms.EnsureWallet(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "u1", w.UserID)
	assert.Equal(t, "USD", w.Currency)
	assert.True(t, w.Cash.Equal(d(50000)), "cash = %s", w.Cash)

	entries, err := ms.LedgerByWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.LedgerKindDeposit, entries[0].Kind)
	assert.True(t, entries[0].Amount.Equal(d(50000)))
	assert.Equal(t, "Paper default deposit", entries[0].Meta["reason"])
}

func TestEnsureWallet_ConcurrentBootstrapIsIdempotent(t *testing.T) {
	ms := store.NewMemoryStore(d(50000))
	ctx := context.Background()

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := ms.EnsureWallet(ctx, "u1")
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = w.ID
		}(i)
	}
	wg.Wait()

	// Every caller saw the same wallet, and exactly one deposit landed.
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	entries, err := ms.LedgerByWallet(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTransact_RollbackOnError(t *testing.T) {
	ms := store.NewMemoryStore(d(1000))
	ctx := context.Background()

	w, err := ms.EnsureWallet(ctx, "u1")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = ms.Transact(ctx, "u1", func(ctx context.Context, tx store.Tx) error {
		wallet, err := tx.EnsureWallet(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.UpdateWalletCash(ctx, wallet.ID, d(1)))
		require.NoError(t, tx.InsertTrade(ctx, &model.Trade{
			ID: "t1", UserID: "u1", Symbol: "AAPL", Side: model.SideBuy, Qty: d(1), Price: d(1),
		}))
		require.NoError(t, tx.InsertLedgerEntry(ctx, &model.LedgerEntry{
			ID: "l1", WalletID: wallet.ID, Kind: model.LedgerKindBuy, Amount: d(-1),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing staged in the failed transaction is visible.
	after, err := ms.WalletByUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, after.Cash.Equal(d(1000)), "cash = %s", after.Cash)

	trades, _ := ms.TradesByUser(ctx, "u1")
	assert.Empty(t, trades)
	entries, _ := ms.LedgerByWallet(ctx, w.ID)
	assert.Len(t, entries, 1) // the bootstrap deposit only
}

func TestTransact_StagedReadsSeeOwnWrites(t *testing.T) {
	ms := store.NewMemoryStore(d(1000))
	ctx := context.Background()

	err := ms.Transact(ctx, "u1", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.EnsureWallet(ctx); err != nil {
			return err
		}
		if err := tx.InsertTrade(ctx, &model.Trade{
			ID: "t1", UserID: "u1", Symbol: "AAPL", Side: model.SideBuy, Qty: d(3), Price: d(10),
		}); err != nil {
			return err
		}
		trades, err := tx.TradesByUser(ctx)
		if err != nil {
			return err
		}
		assert.Len(t, trades, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestTransact_SerializesPerUser(t *testing.T) {
	ms := store.NewMemoryStore(d(0))
	ctx := context.Background()

	_, err := ms.EnsureWallet(ctx, "u1")
	require.NoError(t, err)

	// Concurrent read-modify-write increments must not lose updates.
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ms.Transact(ctx, "u1", func(ctx context.Context, tx store.Tx) error {
				w, err := tx.EnsureWallet(ctx)
				if err != nil {
					return err
				}
				return tx.UpdateWalletCash(ctx, w.ID, w.Cash.Add(d(1)))
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	w, err := ms.WalletByUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Cash.Equal(d(n)), "cash = %s, want %d", w.Cash, n)
}

func TestWalletByUser_NotFound(t *testing.T) {
	ms := store.NewMemoryStore(d(50000))

	_, err := ms.WalletByUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrWalletNotFound)
}

func TestOrdersByUser_NewestFirstWithLimit(t *testing.T) {
	ms := store.NewMemoryStore(d(50000))
	ctx := context.Background()

	err := ms.Transact(ctx, "u1", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.EnsureWallet(ctx); err != nil {
			return err
		}
		for _, id := range []string{"o1", "o2", "o3"} {
			if err := tx.InsertOrder(ctx, &model.Order{
				ID: id, UserID: "u1", Symbol: "AAPL", Side: model.SideBuy,
				Type: model.OrderTypeMarket, Qty: d(1), Status: model.OrderStatusFilled,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	orders, err := ms.OrdersByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o3", orders[0].ID)
	assert.Equal(t, "o2", orders[1].ID)
}

func TestStores_IsolatePerUser(t *testing.T) {
	ms := store.NewMemoryStore(d(50000))
	ctx := context.Background()

	w1, err := ms.EnsureWallet(ctx, "u1")
	require.NoError(t, err)
	w2, err := ms.EnsureWallet(ctx, "u2")
	require.NoError(t, err)
	assert.NotEqual(t, w1.ID, w2.ID)

	err = ms.Transact(ctx, "u1", func(ctx context.Context, tx store.Tx) error {
		return tx.InsertTrade(ctx, &model.Trade{
			ID: "t1", UserID: "u1", Symbol: "AAPL", Side: model.SideBuy, Qty: d(1), Price: d(1),
		})
	})
	require.NoError(t, err)

	trades, _ := ms.TradesByUser(ctx, "u2")
	assert.Empty(t, trades)
}
