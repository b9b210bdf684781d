package broker

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Client = (*AlpacaClient)(nil)

// AlpacaClient implements Client against the Alpaca brokerage API.
type AlpacaClient struct {
	client *alpaca.Client
}

// NewAlpacaClient creates a broker client with explicit credentials.
// baseURL selects the paper or live endpoint.
func NewAlpacaClient(apiKey, apiSecret, baseURL string) *AlpacaClient {
	return &AlpacaClient{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

// Name returns "alpaca".
func (c *AlpacaClient) Name() string { return "alpaca" }

func (c *AlpacaClient) GetAccount(_ context.Context) (*Account, error) {
	acct, err := c.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("alpaca account: %w", err)
	}
	return &Account{
		ID:             acct.ID,
		Status:         string(acct.Status),
		Currency:       acct.Currency,
		Cash:           acct.Cash,
		PortfolioValue: acct.PortfolioValue,
		BuyingPower:    acct.BuyingPower,
	}, nil
}

func (c *AlpacaClient) GetOrders(_ context.Context, limit int) ([]Order, error) {
	raw, err := c.client.GetOrders(alpaca.GetOrdersRequest{
		Status: "all",
		Limit:  limit,
		Nested: false,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca orders: %w", err)
	}

	orders := make([]Order, 0, len(raw))
	for _, o := range raw {
		qty := decimal.Zero
		if o.Qty != nil {
			qty = *o.Qty
		}
		orders = append(orders, Order{
			ID:          o.ID,
			Symbol:      o.Symbol,
			Qty:         qty,
			Side:        string(o.Side),
			Type:        string(o.Type),
			Status:      o.Status,
			SubmittedAt: o.SubmittedAt,
		})
	}
	return orders, nil
}

func (c *AlpacaClient) GetPositions(_ context.Context) ([]Position, error) {
	raw, err := c.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca positions: %w", err)
	}

	positions := make([]Position, 0, len(raw))
	for _, p := range raw {
		pos := Position{
			Symbol:        p.Symbol,
			Qty:           p.Qty,
			AvgEntryPrice: p.AvgEntryPrice,
		}
		if p.MarketValue != nil {
			pos.MarketValue = *p.MarketValue
		}
		if p.UnrealizedPL != nil {
			pos.UnrealizedPL = *p.UnrealizedPL
		}
		positions = append(positions, pos)
	}
	return positions, nil
}
