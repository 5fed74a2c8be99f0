package positions

import (
	"context"
	"errors"
	"time"

	"pf-challenge/internal/errs"
	"pf-challenge/internal/events"
	"pf-challenge/internal/model"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/tier"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Insert(ctx context.Context, p model.Position) (string, error)
	GetByID(ctx context.Context, id string) (model.Position, error)
	GetOpenBySymbol(ctx context.Context, accountID, symbol string) (model.Position, bool, error)
	ListOpenByAccount(ctx context.Context, accountID string) ([]model.Position, error)
	ClaimClose(ctx context.Context, id string, status types.PositionStatus, exitPrice, pnl decimal.Decimal, reason types.CloseReason) (bool, error)
}

type AccountLedger interface {
	GetOrCreate(ctx context.Context, traderID, tierName string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
	AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)
	IncrementTradeCounters(ctx context.Context, accountID string, winning bool) error
}

type TradeLedger interface {
	Append(ctx context.Context, t model.Trade) (string, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, accountID string) error
}

type PriceSource interface {
	Get(symbol string) (oracle.Quote, bool)
}

type Publisher interface {
	Publish(eventType string, data any)
}

var defaultMaxLeverage = decimal.NewFromInt(100)

type Service struct {
	store  Store
	ledger AccountLedger
	trades TradeLedger
	prices PriceSource
	tiers  *tier.Registry
	risk   Evaluator
	pub    Publisher
	log    *logrus.Logger
}

func NewService(store Store, ledger AccountLedger, trades TradeLedger, prices PriceSource, tiers *tier.Registry, risk Evaluator, pub Publisher, log *logrus.Logger) *Service {
	return &Service{store: store, ledger: ledger, trades: trades, prices: prices, tiers: tiers, risk: risk, pub: pub, log: log}
}

type OpenRequest struct {
	TraderID string
	Tier     string
	// AccountID, when set, targets an existing account directly; pending-order
	// fills use it so a claimed order always settles against its own account.
	AccountID  string
	Symbol     string
	Side       types.PositionSide
	Notional   decimal.Decimal
	Leverage   decimal.Decimal
	TakeProfit *decimal.Decimal
	StopLoss   *decimal.Decimal
	// Price overrides the oracle quote; pending-order fills execute at the
	// order's stored price.
	Price *decimal.Decimal
}

type OpenResult struct {
	Position model.Position  `json:"position"`
	Margin   decimal.Decimal `json:"margin"`
	Fee      decimal.Decimal `json:"fee"`
}

type CloseRequest struct {
	PositionID string
	// TraderID scopes the close to the owner; system callers (monitors)
	// leave it empty.
	TraderID string
	Price    *decimal.Decimal
	Reason   types.CloseReason
}

type CloseResult struct {
	Position    model.Position  `json:"position"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}

// OpenMarket fills a market order against the oracle price: validate, settle
// any opposite-side position on the symbol (automatic reversal), insert the
// position, append the opening trade leg, then carve the margin out of the
// account balance.
func (s *Service) OpenMarket(ctx context.Context, req OpenRequest) (OpenResult, error) {
	if req.Symbol == "" {
		return OpenResult{}, errs.Validationf("symbol is required")
	}
	if req.Side != types.PositionSideLong && req.Side != types.PositionSideShort {
		return OpenResult{}, errs.Validationf("side must be long or short")
	}
	if !req.Notional.GreaterThan(decimal.Zero) {
		return OpenResult{}, errs.Validationf("size must be positive")
	}
	if !req.Leverage.GreaterThan(decimal.Zero) {
		return OpenResult{}, errs.Validationf("leverage must be positive")
	}

	var acc model.Account
	var err error
	if req.AccountID != "" {
		acc, err = s.ledger.GetByID(ctx, req.AccountID)
	} else {
		acc, err = s.ledger.GetOrCreate(ctx, req.TraderID, req.Tier)
	}
	if err != nil {
		return OpenResult{}, err
	}
	if acc.Status != types.AccountStatusActive {
		return OpenResult{}, errs.Validationf("challenge is %s; trading is disabled", acc.Status)
	}

	maxLev := s.maxLeverage(acc.Tier)
	if req.Leverage.GreaterThan(maxLev) {
		return OpenResult{}, errs.Validationf("max leverage for this instrument is %s×", maxLev.String())
	}

	price, err := s.resolvePrice(req.Symbol, req.Price)
	if err != nil {
		return OpenResult{}, err
	}

	// Automatic reversal: an opposite-side open position on the symbol is
	// fully settled before the new one opens.
	if existing, ok, err := s.store.GetOpenBySymbol(ctx, acc.ID, req.Symbol); err != nil {
		return OpenResult{}, errs.NewPersistence("positions.get_open", false, err)
	} else if ok {
		if existing.Side == req.Side {
			return OpenResult{}, errs.Validationf("an open %s position already exists on %s", existing.Side, req.Symbol)
		}
		if _, err := s.Close(ctx, CloseRequest{PositionID: existing.ID, Price: &price, Reason: types.CloseReasonReversal}); err != nil && !errs.IsRecoverable(err) {
			return OpenResult{}, err
		}
		// Margin sufficiency is re-checked against the settled balance.
		acc, err = s.ledger.GetByID(ctx, acc.ID)
		if err != nil {
			return OpenResult{}, err
		}
	}

	margin := MarginFor(req.Notional, req.Leverage)
	if margin.GreaterThan(acc.CurrentBalance) {
		return OpenResult{}, errs.ErrInsufficientBalance
	}

	pos := model.Position{
		AccountID:        acc.ID,
		Symbol:           req.Symbol,
		Side:             req.Side,
		EntryPrice:       price,
		Quantity:         QuantityFor(req.Notional, price),
		Leverage:         req.Leverage,
		Margin:           margin,
		LiquidationPrice: LiquidationPrice(req.Side, price, req.Leverage),
		TakeProfit:       req.TakeProfit,
		StopLoss:         req.StopLoss,
		Status:           types.PositionStatusOpen,
		OpenedAt:         time.Now().UTC(),
	}
	id, err := s.store.Insert(ctx, pos)
	if err != nil {
		return OpenResult{}, errs.NewPersistence("positions.insert", true, err)
	}
	pos.ID = id

	if _, err := s.trades.Append(ctx, model.Trade{
		AccountID:  acc.ID,
		PositionID: id,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Price:      price,
		Quantity:   pos.Quantity,
		Leverage:   req.Leverage,
		IsClose:    false,
	}); err != nil {
		s.log.WithError(err).WithField("position", id).Warn("opening trade leg not recorded")
	}

	if _, err := s.adjustBalance(ctx, acc.ID, margin.Neg()); err != nil {
		return OpenResult{}, err
	}

	s.triggerRisk(acc.ID)
	s.publish(events.TypePositionOpened, pos)
	s.log.WithFields(logrus.Fields{
		"position": id, "account": acc.ID, "symbol": req.Symbol,
		"side": req.Side, "margin": margin.String(), "entry": price.String(),
	}).Info("opened position")
	return OpenResult{Position: pos, Margin: margin, Fee: decimal.Zero}, nil
}

// Close settles an open position. The conditional claim is the only guard
// against concurrent closers: losing it is a routine outcome, not a failure.
func (s *Service) Close(ctx context.Context, req CloseRequest) (CloseResult, error) {
	pos, err := s.store.GetByID(ctx, req.PositionID)
	if errors.Is(err, ErrNoPosition) {
		return CloseResult{}, errs.ErrNotFoundOrTerminal
	}
	if err != nil {
		return CloseResult{}, errs.NewPersistence("positions.get", false, err)
	}
	if pos.Status != types.PositionStatusOpen {
		return CloseResult{}, errs.ErrNotFoundOrTerminal
	}
	if req.TraderID != "" {
		owner, err := s.ledger.GetByID(ctx, pos.AccountID)
		if err != nil {
			return CloseResult{}, err
		}
		if owner.TraderID != req.TraderID {
			return CloseResult{}, errs.ErrNotFoundOrTerminal
		}
	}

	exit, err := s.resolvePrice(pos.Symbol, req.Price)
	if err != nil {
		return CloseResult{}, err
	}
	pnl := RealizedPnL(pos.Side, pos.EntryPrice, exit, pos.Quantity)

	reason := req.Reason
	if reason == "" {
		reason = types.CloseReasonManual
	}
	status := types.PositionStatusClosed
	if reason == types.CloseReasonLiquidation {
		status = types.PositionStatusLiquidated
	}

	claimed, err := s.store.ClaimClose(ctx, pos.ID, status, exit, pnl, reason)
	if err != nil {
		return CloseResult{}, errs.NewPersistence("positions.claim_close", true, err)
	}
	if !claimed {
		return CloseResult{}, errs.ErrConcurrencyLost
	}

	// Settlement is keyed by the position's stored account id and applied as
	// a relative delta, so a reset mid-flight cannot redirect it and a
	// concurrent settlement on another symbol cannot be overwritten.
	newBalance, err := s.adjustBalance(ctx, pos.AccountID, pos.Margin.Add(pnl))
	if err != nil {
		return CloseResult{}, err
	}
	if err := s.ledger.IncrementTradeCounters(ctx, pos.AccountID, pnl.GreaterThan(decimal.Zero)); err != nil {
		s.log.WithError(err).WithField("account", pos.AccountID).Warn("trade counters not updated")
	}

	// The closing leg lands after the balance write: history joined to the
	// account never shows a close whose balance effect is missing.
	if _, err := s.trades.Append(ctx, model.Trade{
		AccountID:   pos.AccountID,
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		Price:       exit,
		Quantity:    pos.Quantity,
		Leverage:    pos.Leverage,
		IsClose:     true,
		RealizedPnL: &pnl,
	}); err != nil {
		s.log.WithError(err).WithField("position", pos.ID).Error("closing trade leg not recorded; reconciliation will repair the gap")
	}

	pos.Status = status
	pos.ExitPrice = &exit
	pos.RealizedPnL = &pnl
	pos.CloseReason = reason
	now := time.Now().UTC()
	pos.ClosedAt = &now

	s.triggerRisk(pos.AccountID)
	s.publish(events.TypePositionClosed, pos)
	s.log.WithFields(logrus.Fields{
		"position": pos.ID, "account": pos.AccountID, "reason": reason,
		"pnl": pnl.String(), "balance": newBalance.String(),
	}).Info("closed position")
	return CloseResult{Position: pos, RealizedPnL: pnl, NewBalance: newBalance}, nil
}

func (s *Service) ListOpen(ctx context.Context, accountID string) ([]model.Position, error) {
	return s.store.ListOpenByAccount(ctx, accountID)
}

// adjustBalance is the critical write of a settlement. The delta write is not
// idempotent, so a failure is not retried blindly; reconciliation repairs the
// gap instead.
func (s *Service) adjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	b, err := s.ledger.AdjustBalance(ctx, accountID, delta)
	if err != nil {
		s.log.WithError(err).WithField("account", accountID).Error("balance settlement failed; run reconciliation")
	}
	return b, err
}

func (s *Service) resolvePrice(symbol string, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil {
		if !override.GreaterThan(decimal.Zero) {
			return decimal.Decimal{}, errs.Validationf("price must be positive")
		}
		return *override, nil
	}
	q, ok := s.prices.Get(symbol)
	if !ok || !q.Price.GreaterThan(decimal.Zero) {
		return decimal.Decimal{}, errs.Validationf("no price available for %s", symbol)
	}
	return q.Price, nil
}

func (s *Service) maxLeverage(tierName string) decimal.Decimal {
	if s.tiers != nil {
		if t, ok := s.tiers.Get(tierName); ok {
			return t.MaxLeverage
		}
	}
	return defaultMaxLeverage
}

// A rules-engine failure must never unwind a settled trade, so evaluation is
// detached from the caller and errors are only logged.
func (s *Service) triggerRisk(accountID string) {
	if s.risk == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.risk.Evaluate(ctx, accountID); err != nil {
			s.log.WithError(err).WithField("account", accountID).Warn("risk evaluation failed")
		}
	}()
}

func (s *Service) publish(eventType string, data any) {
	if s.pub != nil {
		s.pub.Publish(eventType, data)
	}
}
