package positions

import (
	"testing"

	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMarginAndQuantity(t *testing.T) {
	assert.True(t, MarginFor(d("5000"), d("10")).Equal(d("500")))
	assert.True(t, QuantityFor(d("5000"), d("50000")).Equal(d("0.1")))
}

func TestLiquidationPrice(t *testing.T) {
	// 0.95/10 = 9.5% away from entry
	long := LiquidationPrice(types.PositionSideLong, d("50000"), d("10"))
	assert.True(t, long.Equal(d("45250")), "got %s", long)

	short := LiquidationPrice(types.PositionSideShort, d("50000"), d("10"))
	assert.True(t, short.Equal(d("54750")), "got %s", short)
}

func TestRealizedPnL(t *testing.T) {
	// Long: (exit - entry) * qty
	pnl := RealizedPnL(types.PositionSideLong, d("50000"), d("40000"), d("0.1"))
	assert.True(t, pnl.Equal(d("-1000")), "got %s", pnl)

	// Short profits from the same move
	pnl = RealizedPnL(types.PositionSideShort, d("50000"), d("40000"), d("0.1"))
	assert.True(t, pnl.Equal(d("1000")), "got %s", pnl)
}

func TestRealizedPnLFlatPriceIsZero(t *testing.T) {
	assert.True(t, RealizedPnL(types.PositionSideLong, d("123.45"), d("123.45"), d("7")).IsZero())
	assert.True(t, RealizedPnL(types.PositionSideShort, d("123.45"), d("123.45"), d("7")).IsZero())
}
