package orders

import (
	"pf-challenge/internal/model"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
)

// ShouldFill evaluates a resting order against the current oracle price.
//
// LIMIT: a buy fills at or below its price, a sell at or above it.
// STOP_LIMIT: inert until the price crosses the stop in the triggering
// direction (up through it for buys, down through it for sells); once
// crossed it behaves as a LIMIT on the same tick.
func ShouldFill(o model.Order, price decimal.Decimal) bool {
	if !price.GreaterThan(decimal.Zero) {
		return false
	}
	if o.Type == types.OrderTypeStopLimit {
		if o.StopPrice == nil {
			return false
		}
		if o.Side == types.OrderSideBuy {
			if price.LessThan(*o.StopPrice) {
				return false
			}
		} else {
			if price.GreaterThan(*o.StopPrice) {
				return false
			}
		}
	}
	if o.Side == types.OrderSideBuy {
		return price.LessThanOrEqual(o.Price)
	}
	return price.GreaterThanOrEqual(o.Price)
}
