// Package paper implements the paper trading engine: order placement
// against a simulated USD wallet, and the read-only projector that
// derives positions and portfolio value from the trade history.
//
// All monetary values use shopspring/decimal — never float64 for money.
package paper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/traderdesk/paper-engine/internal/metrics"
	"github.com/traderdesk/paper-engine/internal/model"
	"github.com/traderdesk/paper-engine/internal/pricing"
	"github.com/traderdesk/paper-engine/internal/store"
)

// txAttempts bounds the retry loop around store transaction conflicts.
const txAttempts = 3

var symbolRe = regexp.MustCompile(`^[A-Z.]{1,10}$`)

// Service is the paper trading engine. It is stateless aside from what
// it reads from and writes to the store; per-user serialization of cash
// updates is delegated to the store's Transact.
type Service struct {
	store  store.Store
	oracle pricing.Oracle
	maxQty decimal.Decimal
	wsHub  *WSHub // optional hub for real-time fill broadcasts
}

// NewService creates a new paper trading service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, oracle pricing.Oracle, hub *WSHub) *Service {
	return &Service{
		store:  st,
		oracle: oracle,
		maxQty: decimal.NewFromInt(100000), // reject obviously-erroneous input
		wsHub:  hub,
	}
}

// OrderRequest is a validated-on-entry order placement request.
type OrderRequest struct {
	Symbol string
	Side   model.Side
	Qty    decimal.Decimal
}

// PlaceOrder validates and executes a market order for userID, filling
// it immediately at the oracle price. All state changes happen in one
// store transaction: a failed order leaves no partial rows and an
// unchanged cash balance.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req OrderRequest) (*model.Order, error) {
	start := time.Now()

	if userID == "" {
		return nil, newError(KindUnauthorized, "no authenticated user")
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if !symbolRe.MatchString(symbol) {
		return nil, newValidation("symbol", "must be 1-10 characters A-Z")
	}
	if !req.Side.Valid() {
		return nil, newValidation("side", "must be buy or sell")
	}
	if !req.Qty.IsPositive() {
		return nil, newValidation("qty", "must be positive")
	}
	if req.Qty.GreaterThan(s.maxQty) {
		return nil, newValidation("qty", "exceeds maximum order quantity "+s.maxQty.String())
	}

	price, err := s.oracle.Price(ctx, symbol)
	if err != nil {
		if errors.Is(err, pricing.ErrUnavailable) {
			return nil, newError(KindPriceUnavailable, err.Error())
		}
		return nil, err
	}

	notional := price.Mul(req.Qty)

	var order *model.Order
	for attempt := 1; ; attempt++ {
		order, err = s.execute(ctx, userID, symbol, req.Side, req.Qty, price, notional)
		if err == nil || !errors.Is(err, store.ErrTxConflict) {
			break
		}
		if attempt == txAttempts {
			err = newError(KindTxConflict, fmt.Sprintf("gave up after %d attempts: %v", attempt, err))
			break
		}
		slog.Warn("order transaction conflict, retrying",
			"user", userID, "symbol", symbol, "attempt", attempt)
	}
	if err != nil {
		metrics.OrderRejections.WithLabelValues(string(KindOf(err))).Inc()
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues(string(req.Side)).Inc()
	metrics.OrderLatency.WithLabelValues(string(req.Side)).Observe(time.Since(start).Seconds())

	slog.Info("order filled",
		"order_id", order.ID,
		"user", userID,
		"symbol", symbol,
		"side", req.Side,
		"qty", req.Qty.String(),
		"price", price.String(),
		"notional", notional.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:    "order_filled",
			OrderID: order.ID,
			Symbol:  symbol,
			Side:    string(req.Side),
			Qty:     req.Qty.String(),
			Price:   price.String(),
		})
	}

	return order, nil
}

// execute runs the order's single atomic transaction: ensure wallet,
// validate position/cash against current state, move cash, append
// ledger entry, trade, and order.
func (s *Service) execute(ctx context.Context, userID, symbol string, side model.Side, qty, price, notional decimal.Decimal) (*model.Order, error) {
	var order *model.Order

	err := s.store.Transact(ctx, userID, func(ctx context.Context, tx store.Tx) error {
		wallet, err := tx.EnsureWallet(ctx)
		if err != nil {
			if errors.Is(err, store.ErrWalletNotFound) {
				return newError(KindWalletNotFound, err.Error())
			}
			return err
		}

		if side == model.SideSell {
			trades, err := tx.TradesByUser(ctx)
			if err != nil {
				return err
			}
			held := positionQty(trades, symbol)
			if held.LessThan(qty) {
				return newError(KindInsufficientPosition,
					fmt.Sprintf("position %s < sell qty %s for %s", held, qty, symbol))
			}
		}

		if side == model.SideBuy && wallet.Cash.LessThan(notional) {
			return newError(KindInsufficientCash,
				fmt.Sprintf("cash %s < notional %s", wallet.Cash, notional))
		}

		cashDelta := notional
		kind := model.LedgerKindSell
		if side == model.SideBuy {
			cashDelta = notional.Neg()
			kind = model.LedgerKindBuy
		}

		newCash := wallet.Cash.Add(cashDelta)
		// The checks above make this unreachable; a violation here is an
		// internal-consistency failure, not a user error.
		if newCash.IsNegative() {
			return fmt.Errorf("internal: wallet %s cash would go negative (%s)", wallet.ID, newCash)
		}

		if err := tx.UpdateWalletCash(ctx, wallet.ID, newCash); err != nil {
			return err
		}

		now := time.Now().UTC()
		orderID := uuid.New().String()

		if err := tx.InsertLedgerEntry(ctx, &model.LedgerEntry{
			ID:        uuid.New().String(),
			WalletID:  wallet.ID,
			Kind:      kind,
			Symbol:    symbol,
			Qty:       qty,
			Price:     price,
			Amount:    cashDelta,
			Meta:      map[string]string{"order_id": orderID},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if err := tx.InsertTrade(ctx, &model.Trade{
			ID:        uuid.New().String(),
			UserID:    userID,
			Symbol:    symbol,
			Side:      side,
			Qty:       qty,
			Price:     price,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		order = &model.Order{
			ID:          orderID,
			UserID:      userID,
			Symbol:      symbol,
			Side:        side,
			Type:        model.OrderTypeMarket,
			Qty:         qty,
			Status:      model.OrderStatusFilled,
			FilledPrice: price,
			CreatedAt:   now,
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Positions derives the user's open positions by folding the trade
// history: +qty for buys, -qty for sells, average-cost entry price.
// Pure read; symbols with zero net quantity are excluded.
func (s *Service) Positions(ctx context.Context, userID string) ([]model.Position, error) {
	if userID == "" {
		return nil, newError(KindUnauthorized, "no authenticated user")
	}

	trades, err := s.store.TradesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions := foldPositions(trades)
	for i := range positions {
		mark, err := s.oracle.Price(ctx, positions[i].Symbol)
		if err != nil {
			// No live quote: mark at the average entry price.
			mark = positions[i].AvgPrice
		}
		positions[i].MarkPrice = mark
		positions[i].MarketValue = positions[i].Qty.Mul(mark)
	}
	return positions, nil
}

// Balance reports the user's cash (wallet is the source of truth) and
// portfolio value (cash plus marked open positions). Bootstraps the
// wallet on first touch.
func (s *Service) Balance(ctx context.Context, userID string) (*model.Balance, error) {
	if userID == "" {
		return nil, newError(KindUnauthorized, "no authenticated user")
	}

	wallet, err := s.store.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions, err := s.Positions(ctx, userID)
	if err != nil {
		return nil, err
	}

	portfolio := wallet.Cash
	for _, p := range positions {
		portfolio = portfolio.Add(p.MarketValue)
	}

	return &model.Balance{
		Cash:           wallet.Cash,
		PortfolioValue: portfolio,
		BuyingPower:    wallet.Cash.Mul(decimal.NewFromInt(2)),
		Currency:       wallet.Currency,
		Mode:           "paper",
	}, nil
}

// Orders returns the user's most recent orders, newest first, capped
// at 50.
func (s *Service) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, newError(KindUnauthorized, "no authenticated user")
	}
	return s.store.OrdersByUser(ctx, userID, 50)
}

// Ledger returns the full cash-movement history of the user's wallet.
func (s *Service) Ledger(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	if userID == "" {
		return nil, newError(KindUnauthorized, "no authenticated user")
	}
	wallet, err := s.store.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.LedgerByWallet(ctx, wallet.ID)
}

// positionQty folds trades to the net quantity held in one symbol.
func positionQty(trades []model.Trade, symbol string) decimal.Decimal {
	qty := decimal.Zero
	for _, t := range trades {
		if t.Symbol != symbol {
			continue
		}
		if t.Side == model.SideBuy {
			qty = qty.Add(t.Qty)
		} else {
			qty = qty.Sub(t.Qty)
		}
	}
	return qty
}

// foldPositions aggregates trades per symbol in execution order,
// tracking net quantity and average entry price (average-cost: buys
// re-average, sells reduce quantity at the current average). Emits only
// nonzero positions, sorted by symbol for deterministic iteration.
func foldPositions(trades []model.Trade) []model.Position {
	type agg struct {
		qty decimal.Decimal
		avg decimal.Decimal
	}
	bySymbol := make(map[string]*agg)

	for _, t := range trades {
		a, ok := bySymbol[t.Symbol]
		if !ok {
			a = &agg{qty: decimal.Zero, avg: decimal.Zero}
			bySymbol[t.Symbol] = a
		}
		if t.Side == model.SideBuy {
			newQty := a.qty.Add(t.Qty)
			// Weighted average over the enlarged position.
			a.avg = a.avg.Mul(a.qty).Add(t.Price.Mul(t.Qty)).Div(newQty)
			a.qty = newQty
		} else {
			a.qty = a.qty.Sub(t.Qty)
			if a.qty.IsZero() {
				a.avg = decimal.Zero
			}
		}
	}

	var positions []model.Position
	for symbol, a := range bySymbol {
		if a.qty.IsZero() {
			continue
		}
		positions = append(positions, model.Position{
			Symbol:   symbol,
			Qty:      a.qty,
			AvgPrice: a.avg,
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}
