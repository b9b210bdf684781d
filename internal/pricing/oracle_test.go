package pricing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traderdesk/paper-engine/internal/pricing"
)

func TestStatic_KnownSymbol(t *testing.T) {
	oracle := pricing.NewStatic(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(187),
	})

	p, err := oracle.Price(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.NewFromInt(187)), "price = %s", p)
}

func TestStatic_UnknownSymbol(t *testing.T) {
	oracle := pricing.DefaultStatic()

	_, err := oracle.Price(context.Background(), "NOPE")
	assert.ErrorIs(t, err, pricing.ErrUnavailable)
}

func TestDefaultStatic_CoversMockTickers(t *testing.T) {
	oracle := pricing.DefaultStatic()

	for _, sym := range []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "SPY"} {
		p, err := oracle.Price(context.Background(), sym)
		require.NoError(t, err, sym)
		assert.True(t, p.IsPositive(), "%s price = %s", sym, p)
	}
}
