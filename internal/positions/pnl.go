package positions

import (
	"pf-challenge/internal/model"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
)

// maintenanceBuffer keeps the liquidation trigger 5% short of the price at
// which margin would be mathematically exhausted.
var maintenanceBuffer = decimal.RequireFromString("0.95")

func one() decimal.Decimal { return decimal.NewFromInt(1) }

// MarginFor is the capital reserved against a position: notional / leverage.
func MarginFor(notional, leverage decimal.Decimal) decimal.Decimal {
	return notional.Div(leverage)
}

// QuantityFor converts a notional size into base units at the fill price.
func QuantityFor(notional, price decimal.Decimal) decimal.Decimal {
	return notional.Div(price)
}

// LiquidationPrice returns the forced-close trigger for a freshly opened
// position: entry*(1 - 0.95/lev) for longs, entry*(1 + 0.95/lev) for shorts.
func LiquidationPrice(side types.PositionSide, entry, leverage decimal.Decimal) decimal.Decimal {
	offset := maintenanceBuffer.Div(leverage)
	if side == types.PositionSideShort {
		return entry.Mul(one().Add(offset))
	}
	return entry.Mul(one().Sub(offset))
}

// RealizedPnL computes the settled profit of a close:
// long (exit-entry)*qty, short (entry-exit)*qty.
func RealizedPnL(side types.PositionSide, entry, exit, qty decimal.Decimal) decimal.Decimal {
	if side == types.PositionSideShort {
		return entry.Sub(exit).Mul(qty)
	}
	return exit.Sub(entry).Mul(qty)
}

// UnrealizedPnL marks an open position against the given price.
func UnrealizedPnL(p model.Position, mark decimal.Decimal) decimal.Decimal {
	return RealizedPnL(p.Side, p.EntryPrice, mark, p.Quantity)
}
