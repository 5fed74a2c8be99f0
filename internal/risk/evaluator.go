package risk

import (
	"context"
	"sync"
	"time"

	"pf-challenge/internal/events"
	"pf-challenge/internal/model"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type AccountStore interface {
	GetByID(ctx context.Context, id string) (model.Account, error)
	TransitionStatus(ctx context.Context, id string, to types.AccountStatus) (bool, error)
	RaiseHighWaterMark(ctx context.Context, id string, equity decimal.Decimal) error
}

type PositionLister interface {
	ListOpenByAccount(ctx context.Context, accountID string) ([]model.Position, error)
}

type TradeDays interface {
	TradingDayCount(ctx context.Context, accountID string) (int, error)
}

type Violations interface {
	Insert(ctx context.Context, v model.Violation) (string, error)
}

type PriceSource interface {
	Snapshot(symbols []string) map[string]oracle.Quote
}

type Publisher interface {
	Publish(eventType string, data any)
}

// Service drives the account status state machine after every
// balance-affecting event.
type Service struct {
	accounts   AccountStore
	posList    PositionLister
	tradeDays  TradeDays
	violations Violations
	prices     PriceSource
	pub        Publisher
	log        *logrus.Logger

	mu        sync.Mutex
	dayStarts map[string]dayStart
}

type dayStart struct {
	date   string
	equity decimal.Decimal
}

func NewService(accounts AccountStore, posList PositionLister, tradeDays TradeDays, violations Violations, prices PriceSource, pub Publisher, log *logrus.Logger) *Service {
	return &Service{
		accounts:   accounts,
		posList:    posList,
		tradeDays:  tradeDays,
		violations: violations,
		prices:     prices,
		pub:        pub,
		log:        log,
		dayStarts:  make(map[string]dayStart),
	}
}

// State is the recomputed view of one account, used both for rule evaluation
// and for the account-state API response.
type State struct {
	Equity      decimal.Decimal `json:"equity"`
	TradingDays int             `json:"trading_days"`
	PendingPass bool            `json:"pending_pass"`
}

// Evaluate recomputes true equity and walks the rule ladder. Both failure
// transitions are irreversible; pass additionally requires the trading-day
// minimum. The high-water mark rises on any equity high regardless of status.
func (s *Service) Evaluate(ctx context.Context, accountID string) error {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	open, err := s.posList.ListOpenByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	equity := s.markEquity(acc, open)

	if err := s.accounts.RaiseHighWaterMark(ctx, accountID, equity); err != nil {
		s.log.WithError(err).WithField("account", accountID).Warn("high-water mark not updated")
	}
	if acc.Status != types.AccountStatusActive {
		return nil
	}

	days, err := s.tradeDays.TradingDayCount(ctx, accountID)
	if err != nil {
		return err
	}
	outcome := Decide(Snapshot{
		InitialBalance: acc.InitialBalance,
		Equity:         equity,
		ProfitTarget:   acc.ProfitTarget,
		MaxDrawdown:    acc.MaxTotalDrawdown,
		MaxDailyLoss:   acc.MaxDailyLoss,
		DayStartEquity: s.dayStartEquity(accountID, equity),
		TradingDays:    days,
		MinTradingDays: acc.MinTradingDays,
	})
	if outcome.Status == types.AccountStatusActive {
		return nil
	}

	if outcome.Violation != nil {
		v := *outcome.Violation
		v.AccountID = accountID
		if _, err := s.violations.Insert(ctx, v); err != nil {
			s.log.WithError(err).WithField("account", accountID).Error("violation record not written")
		}
	}
	transitioned, err := s.accounts.TransitionStatus(ctx, accountID, outcome.Status)
	if err != nil {
		return err
	}
	if transitioned {
		s.log.WithFields(logrus.Fields{"account": accountID, "status": outcome.Status, "equity": equity.String()}).Info("challenge status changed")
		if s.pub != nil {
			s.pub.Publish(events.TypeAccountStatus, map[string]any{
				"account_id": accountID,
				"status":     outcome.Status,
				"equity":     equity.String(),
			})
		}
	}
	return nil
}

// StateFor recomputes equity, day count and the pending-pass signal for the
// account-state response without mutating anything.
func (s *Service) StateFor(ctx context.Context, acc model.Account, open []model.Position) (State, error) {
	equity := s.markEquity(acc, open)
	days, err := s.tradeDays.TradingDayCount(ctx, acc.ID)
	if err != nil {
		return State{}, err
	}
	pending := acc.Status == types.AccountStatusActive &&
		equity.Sub(acc.InitialBalance).GreaterThanOrEqual(acc.ProfitTarget) &&
		days < acc.MinTradingDays
	return State{Equity: equity, TradingDays: days, PendingPass: pending}, nil
}

func (s *Service) markEquity(acc model.Account, open []model.Position) decimal.Decimal {
	symbols := make([]string, 0, len(open))
	for _, p := range open {
		symbols = append(symbols, p.Symbol)
	}
	var prices map[string]oracle.Quote
	if s.prices != nil {
		prices = s.prices.Snapshot(symbols)
	}
	return TrueEquity(acc.CurrentBalance, open, prices)
}

// dayStartEquity returns the equity snapshot taken at the first evaluation of
// the current UTC day, seeding it when the day rolls over.
func (s *Service) dayStartEquity(accountID string, equity decimal.Decimal) *decimal.Decimal {
	today := time.Now().UTC().Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.dayStarts[accountID]
	if !ok || ds.date != today {
		s.dayStarts[accountID] = dayStart{date: today, equity: equity}
		v := equity
		return &v
	}
	v := ds.equity
	return &v
}
