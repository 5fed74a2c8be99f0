package model

import (
	"time"

	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID               string              `json:"id"`
	TraderID         string              `json:"trader_id"`
	Tier             string              `json:"tier"`
	InitialBalance   decimal.Decimal     `json:"initial_balance"`
	CurrentBalance   decimal.Decimal     `json:"current_balance"`
	Equity           decimal.Decimal     `json:"equity"`
	ProfitTarget     decimal.Decimal     `json:"profit_target"`
	MaxTotalDrawdown decimal.Decimal     `json:"max_total_drawdown"`
	MaxDailyLoss     *decimal.Decimal    `json:"max_daily_loss,omitempty"`
	MinTradingDays   int                 `json:"min_trading_days"`
	HighWaterMark    decimal.Decimal     `json:"high_water_mark"`
	TotalTrades      int                 `json:"total_trades"`
	WinningTrades    int                 `json:"winning_trades"`
	Status           types.AccountStatus `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type Position struct {
	ID               string               `json:"id"`
	AccountID        string               `json:"account_id"`
	Symbol           string               `json:"symbol"`
	Side             types.PositionSide   `json:"side"`
	EntryPrice       decimal.Decimal      `json:"entry_price"`
	Quantity         decimal.Decimal      `json:"quantity"`
	Leverage         decimal.Decimal      `json:"leverage"`
	Margin           decimal.Decimal      `json:"margin"`
	LiquidationPrice decimal.Decimal      `json:"liquidation_price"`
	TakeProfit       *decimal.Decimal     `json:"take_profit,omitempty"`
	StopLoss         *decimal.Decimal     `json:"stop_loss,omitempty"`
	Status           types.PositionStatus `json:"status"`
	ExitPrice        *decimal.Decimal     `json:"exit_price,omitempty"`
	RealizedPnL      *decimal.Decimal     `json:"realized_pnl,omitempty"`
	CloseReason      types.CloseReason    `json:"close_reason,omitempty"`
	OpenedAt         time.Time            `json:"opened_at"`
	ClosedAt         *time.Time           `json:"closed_at,omitempty"`
}

// Notional is the position size before leverage is divided out of it.
func (p Position) Notional() decimal.Decimal {
	return p.EntryPrice.Mul(p.Quantity)
}

type Order struct {
	ID         string            `json:"id"`
	AccountID  string            `json:"account_id"`
	Symbol     string            `json:"symbol"`
	Side       types.OrderSide   `json:"side"`
	Type       types.OrderType   `json:"type"`
	Price      decimal.Decimal   `json:"price"`
	StopPrice  *decimal.Decimal  `json:"stop_price,omitempty"`
	Notional   decimal.Decimal   `json:"notional"`
	Leverage   decimal.Decimal   `json:"leverage"`
	TakeProfit *decimal.Decimal  `json:"take_profit,omitempty"`
	StopLoss   *decimal.Decimal  `json:"stop_loss,omitempty"`
	Status     types.OrderStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type Trade struct {
	ID          string             `json:"id"`
	AccountID   string             `json:"account_id"`
	PositionID  string             `json:"position_id"`
	Symbol      string             `json:"symbol"`
	Side        types.PositionSide `json:"side"`
	Price       decimal.Decimal    `json:"price"`
	Quantity    decimal.Decimal    `json:"quantity"`
	Leverage    decimal.Decimal    `json:"leverage"`
	IsClose     bool               `json:"is_close"`
	RealizedPnL *decimal.Decimal   `json:"realized_pnl,omitempty"`
	ExecutedAt  time.Time          `json:"executed_at"`
}

type Violation struct {
	ID          string              `json:"id"`
	AccountID   string              `json:"account_id"`
	Type        types.ViolationType `json:"type"`
	Description string              `json:"description"`
	Equity      decimal.Decimal     `json:"equity"`
	Magnitude   decimal.Decimal     `json:"magnitude"`
	CreatedAt   time.Time           `json:"created_at"`
}
