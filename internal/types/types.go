package types

type PositionSide string

type PositionStatus string

type OrderSide string

type OrderType string

type OrderStatus string

type AccountStatus string

type CloseReason string

type ViolationType string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

const (
	PositionStatusOpen       PositionStatus = "open"
	PositionStatusClosed     PositionStatus = "closed"
	PositionStatusLiquidated PositionStatus = "liquidated"
)

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStopLimit OrderType = "stop_limit"
)

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusPassed   AccountStatus = "passed"
	AccountStatusFailed   AccountStatus = "failed"
	AccountStatusArchived AccountStatus = "archived"
)

const (
	CloseReasonManual      CloseReason = "manual"
	CloseReasonTakeProfit  CloseReason = "take_profit"
	CloseReasonStopLoss    CloseReason = "stop_loss"
	CloseReasonLiquidation CloseReason = "liquidation"
	CloseReasonReversal    CloseReason = "reversal"
)

const (
	ViolationTypeMaxDrawdown ViolationType = "max_drawdown"
	ViolationTypeDailyLoss   ViolationType = "daily_loss"
)

// PositionSideForOrder maps an order side onto the position side its fill opens.
func PositionSideForOrder(side OrderSide) PositionSide {
	if side == OrderSideSell {
		return PositionSideShort
	}
	return PositionSideLong
}
