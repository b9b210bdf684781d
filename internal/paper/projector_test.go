package paper

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/traderdesk/paper-engine/internal/model"
)

func trade(symbol string, side model.Side, qty, price float64) model.Trade {
	return model.Trade{
		Symbol: symbol,
		Side:   side,
		Qty:    decimal.NewFromFloat(qty),
		Price:  decimal.NewFromFloat(price),
	}
}

func TestFoldPositions_AverageCost(t *testing.T) {
	// 10 @ 100 then 10 @ 200: avg = 150.
	positions := foldPositions([]model.Trade{
		trade("AAPL", model.SideBuy, 10, 100),
		trade("AAPL", model.SideBuy, 10, 200),
	})
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	p := positions[0]
	if !p.Qty.Equal(decimal.NewFromInt(20)) {
		t.Errorf("qty = %s, want 20", p.Qty)
	}
	if !p.AvgPrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("avg = %s, want 150", p.AvgPrice)
	}
}

func TestFoldPositions_SellKeepsAverage(t *testing.T) {
	// Selling at any price reduces quantity at the standing average.
	positions := foldPositions([]model.Trade{
		trade("AAPL", model.SideBuy, 10, 100),
		trade("AAPL", model.SideSell, 4, 500),
	})
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	p := positions[0]
	if !p.Qty.Equal(decimal.NewFromInt(6)) {
		t.Errorf("qty = %s, want 6", p.Qty)
	}
	if !p.AvgPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("avg = %s, want 100", p.AvgPrice)
	}
}

func TestFoldPositions_FlatPositionExcluded(t *testing.T) {
	positions := foldPositions([]model.Trade{
		trade("AAPL", model.SideBuy, 10, 100),
		trade("AAPL", model.SideSell, 10, 100),
		trade("MSFT", model.SideBuy, 1, 250),
	})
	if len(positions) != 1 {
		t.Fatalf("expected only the open MSFT position, got %+v", positions)
	}
	if positions[0].Symbol != "MSFT" {
		t.Errorf("symbol = %s, want MSFT", positions[0].Symbol)
	}
}

func TestFoldPositions_ReopenAfterFlatRestartsAverage(t *testing.T) {
	// Closing to zero resets cost basis; the reopened lot prices fresh.
	positions := foldPositions([]model.Trade{
		trade("AAPL", model.SideBuy, 5, 100),
		trade("AAPL", model.SideSell, 5, 120),
		trade("AAPL", model.SideBuy, 2, 300),
	})
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	p := positions[0]
	if !p.Qty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("qty = %s, want 2", p.Qty)
	}
	if !p.AvgPrice.Equal(decimal.NewFromInt(300)) {
		t.Errorf("avg = %s, want 300", p.AvgPrice)
	}
}

func TestFoldPositions_SortedBySymbol(t *testing.T) {
	positions := foldPositions([]model.Trade{
		trade("TSLA", model.SideBuy, 1, 200),
		trade("AAPL", model.SideBuy, 1, 100),
		trade("MSFT", model.SideBuy, 1, 250),
	})
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(positions) != len(want) {
		t.Fatalf("expected %d positions, got %d", len(want), len(positions))
	}
	for i, sym := range want {
		if positions[i].Symbol != sym {
			t.Errorf("positions[%d] = %s, want %s", i, positions[i].Symbol, sym)
		}
	}
}

func TestPositionQty(t *testing.T) {
	trades := []model.Trade{
		trade("AAPL", model.SideBuy, 10, 100),
		trade("MSFT", model.SideBuy, 3, 250),
		trade("AAPL", model.SideSell, 4, 110),
	}
	if got := positionQty(trades, "AAPL"); !got.Equal(decimal.NewFromInt(6)) {
		t.Errorf("AAPL qty = %s, want 6", got)
	}
	if got := positionQty(trades, "GOOG"); !got.IsZero() {
		t.Errorf("GOOG qty = %s, want 0", got)
	}
}
