package risk

import (
	"fmt"

	"pf-challenge/internal/model"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/positions"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
)

// Snapshot is everything a rule pass needs, recomputed fresh per evaluation.
// Cached equity on the account row is never trusted.
type Snapshot struct {
	InitialBalance decimal.Decimal
	Equity         decimal.Decimal
	ProfitTarget   decimal.Decimal
	MaxDrawdown    decimal.Decimal
	MaxDailyLoss   *decimal.Decimal
	DayStartEquity *decimal.Decimal
	TradingDays    int
	MinTradingDays int
}

type Outcome struct {
	Status      types.AccountStatus
	PendingPass bool
	Violation   *model.Violation
}

// Decide runs the rule ladder: max drawdown, then daily loss, then the
// profit-target gate. Pass requires the target AND the minimum trading days
// jointly; target alone only raises the pending-pass signal.
func Decide(s Snapshot) Outcome {
	drawdown := s.InitialBalance.Sub(s.Equity)
	if drawdown.GreaterThanOrEqual(s.MaxDrawdown) {
		return Outcome{
			Status: types.AccountStatusFailed,
			Violation: &model.Violation{
				Type:        types.ViolationTypeMaxDrawdown,
				Description: fmt.Sprintf("drawdown %s breached limit %s", drawdown.String(), s.MaxDrawdown.String()),
				Equity:      s.Equity,
				Magnitude:   drawdown,
			},
		}
	}

	if s.MaxDailyLoss != nil && s.DayStartEquity != nil {
		dailyLoss := s.DayStartEquity.Sub(s.Equity)
		if dailyLoss.GreaterThanOrEqual(*s.MaxDailyLoss) {
			return Outcome{
				Status: types.AccountStatusFailed,
				Violation: &model.Violation{
					Type:        types.ViolationTypeDailyLoss,
					Description: fmt.Sprintf("daily loss %s breached limit %s", dailyLoss.String(), s.MaxDailyLoss.String()),
					Equity:      s.Equity,
					Magnitude:   dailyLoss,
				},
			}
		}
	}

	profit := s.Equity.Sub(s.InitialBalance)
	if profit.GreaterThanOrEqual(s.ProfitTarget) {
		if s.TradingDays >= s.MinTradingDays {
			return Outcome{Status: types.AccountStatusPassed}
		}
		return Outcome{Status: types.AccountStatusActive, PendingPass: true}
	}
	return Outcome{Status: types.AccountStatusActive}
}

// TrueEquity is free balance plus each open position's margin and its
// mark-to-market PNL. A symbol missing from the price map contributes its
// margin with zero unrealized PNL until the next tick supplies a quote.
func TrueEquity(balance decimal.Decimal, open []model.Position, prices map[string]oracle.Quote) decimal.Decimal {
	equity := balance
	for _, p := range open {
		equity = equity.Add(p.Margin)
		if q, ok := prices[p.Symbol]; ok && q.Price.GreaterThan(decimal.Zero) {
			equity = equity.Add(positions.UnrealizedPnL(p, q.Price))
		}
	}
	return equity
}
