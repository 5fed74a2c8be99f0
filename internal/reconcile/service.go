package reconcile

import (
	"context"

	"pf-challenge/internal/errs"
	"pf-challenge/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type AccountLedger interface {
	GetOrCreate(ctx context.Context, traderID, tierName string) (model.Account, error)
	UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
}

type Counters interface {
	SetTradeCounters(ctx context.Context, id string, total, winning int) error
}

type TradeTotals interface {
	RealizedTotals(ctx context.Context, accountID string) (pnl decimal.Decimal, total, winning int, err error)
}

type PositionLister interface {
	ListOpenByAccount(ctx context.Context, accountID string) ([]model.Position, error)
}

// Service recomputes the canonical balance from the trade ledger and open
// margin, independently of the incremental bookkeeping. It is the audit
// mechanism for the class of bug where a close leg is logged but its balance
// write was lost.
type Service struct {
	ledger   AccountLedger
	counters Counters
	trades   TradeTotals
	posList  PositionLister
	epsilon  decimal.Decimal
	log      *logrus.Logger
}

func NewService(ledger AccountLedger, counters Counters, trades TradeTotals, posList PositionLister, epsilon decimal.Decimal, log *logrus.Logger) *Service {
	return &Service{ledger: ledger, counters: counters, trades: trades, posList: posList, epsilon: epsilon, log: log}
}

type Result struct {
	AccountID        string          `json:"account_id"`
	OldBalance       decimal.Decimal `json:"old_balance"`
	NewBalance       decimal.Decimal `json:"new_balance"`
	Delta            decimal.Decimal `json:"delta"`
	RealizedPnLTotal decimal.Decimal `json:"realized_pnl_total"`
	AlreadyCorrect   bool            `json:"already_correct"`
}

// CanonicalBalance is initial + Σ realized PNL over closing trades − Σ margin
// of currently-open positions, clamped at zero.
func CanonicalBalance(initial, realized, openMargin decimal.Decimal) decimal.Decimal {
	b := initial.Add(realized).Sub(openMargin)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// Run reconciles one trader's account for the tier. It writes only when the
// stored balance deviates beyond epsilon, so a second run right after a
// successful one always reports alreadyCorrect.
func (s *Service) Run(ctx context.Context, traderID, tierName string) (Result, error) {
	acc, err := s.ledger.GetOrCreate(ctx, traderID, tierName)
	if err != nil {
		return Result{}, err
	}

	realized, total, winning, err := s.trades.RealizedTotals(ctx, acc.ID)
	if err != nil {
		return Result{}, errs.NewPersistence("reconcile.totals", false, err)
	}
	open, err := s.posList.ListOpenByAccount(ctx, acc.ID)
	if err != nil {
		return Result{}, errs.NewPersistence("reconcile.positions", false, err)
	}
	openMargin := decimal.Zero
	for _, p := range open {
		openMargin = openMargin.Add(p.Margin)
	}

	canonical := CanonicalBalance(acc.InitialBalance, realized, openMargin)
	delta := canonical.Sub(acc.CurrentBalance)
	res := Result{
		AccountID:        acc.ID,
		OldBalance:       acc.CurrentBalance,
		NewBalance:       canonical,
		Delta:            delta,
		RealizedPnLTotal: realized,
	}

	if delta.Abs().LessThanOrEqual(s.epsilon) {
		res.NewBalance = acc.CurrentBalance
		res.Delta = decimal.Zero
		res.AlreadyCorrect = true
		if acc.TotalTrades != total || acc.WinningTrades != winning {
			if err := s.counters.SetTradeCounters(ctx, acc.ID, total, winning); err != nil {
				return res, errs.NewPersistence("reconcile.counters", false, err)
			}
		}
		return res, nil
	}

	if err := s.ledger.UpdateBalance(ctx, acc.ID, canonical); err != nil {
		return res, err
	}
	if err := s.counters.SetTradeCounters(ctx, acc.ID, total, winning); err != nil {
		return res, errs.NewPersistence("reconcile.counters", false, err)
	}
	s.log.WithFields(logrus.Fields{
		"account": acc.ID, "old": acc.CurrentBalance.String(),
		"new": canonical.String(), "delta": delta.String(),
	}).Warn("reconciliation corrected balance")
	return res, nil
}
