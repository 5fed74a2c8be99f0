package accounts

import (
	"context"
	"errors"
	"time"

	"pf-challenge/internal/errs"
	"pf-challenge/internal/model"
	"pf-challenge/internal/tier"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the persistence surface the ledger service needs. *PGStore is the
// production implementation.
type Store interface {
	GetByTraderTier(ctx context.Context, traderID, tier string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
	Insert(ctx context.Context, a model.Account) (string, error)
	UpdateRiskConfig(ctx context.Context, id string, target, drawdown decimal.Decimal, dailyLoss *decimal.Decimal, minDays int) error
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
	IncrementTradeCounters(ctx context.Context, id string, winning bool) error
	ArchiveRename(ctx context.Context, id, suffix string) error
}

type Service struct {
	store Store
	tiers *tier.Registry
	log   *logrus.Logger
}

func NewService(store Store, tiers *tier.Registry, log *logrus.Logger) *Service {
	return &Service{store: store, tiers: tiers, log: log}
}

// GetOrCreate returns the trader's account for the tier, creating one from the
// tier definition on first access. Stored risk parameters that drifted from
// the current definition are healed in place without touching balance or
// history.
func (s *Service) GetOrCreate(ctx context.Context, traderID, tierName string) (model.Account, error) {
	if traderID == "" {
		return model.Account{}, errs.Validationf("trader id is required")
	}
	t, ok := s.resolveTier(tierName)
	if !ok {
		return model.Account{}, errs.Validationf("unknown tier %q", tierName)
	}

	acc, err := s.store.GetByTraderTier(ctx, traderID, t.Name)
	if errors.Is(err, ErrNoAccount) {
		return s.create(ctx, traderID, t)
	}
	if err != nil {
		return model.Account{}, errs.NewPersistence("accounts.get", false, err)
	}

	if configDrifted(acc, t) {
		var dailyLoss *decimal.Decimal
		if t.DailyLossEnabled() {
			v := t.MaxDailyLoss
			dailyLoss = &v
		}
		if err := s.store.UpdateRiskConfig(ctx, acc.ID, t.ProfitTarget, t.MaxDrawdown, dailyLoss, t.MinTradingDays); err != nil {
			return model.Account{}, errs.NewPersistence("accounts.heal_config", false, err)
		}
		s.log.WithFields(logrus.Fields{"account": acc.ID, "tier": t.Name}).Info("healed drifted tier configuration")
		acc.ProfitTarget = t.ProfitTarget
		acc.MaxTotalDrawdown = t.MaxDrawdown
		acc.MaxDailyLoss = dailyLoss
		acc.MinTradingDays = t.MinTradingDays
	}
	return acc, nil
}

func (s *Service) create(ctx context.Context, traderID string, t tier.Tier) (model.Account, error) {
	acc := model.Account{
		TraderID:         traderID,
		Tier:             t.Name,
		InitialBalance:   t.InitialBalance,
		CurrentBalance:   t.InitialBalance,
		Equity:           t.InitialBalance,
		ProfitTarget:     t.ProfitTarget,
		MaxTotalDrawdown: t.MaxDrawdown,
		MinTradingDays:   t.MinTradingDays,
		HighWaterMark:    t.InitialBalance,
		Status:           types.AccountStatusActive,
	}
	if t.DailyLossEnabled() {
		v := t.MaxDailyLoss
		acc.MaxDailyLoss = &v
	}
	id, err := s.store.Insert(ctx, acc)
	if err != nil {
		// Concurrent first access can race the insert; the unique index
		// resolves it, re-read the winner.
		if existing, getErr := s.store.GetByTraderTier(ctx, traderID, t.Name); getErr == nil {
			return existing, nil
		}
		return model.Account{}, errs.NewPersistence("accounts.create", false, err)
	}
	acc.ID = id
	s.log.WithFields(logrus.Fields{"account": id, "trader": traderID, "tier": t.Name}).Info("created challenge account")
	return s.store.GetByID(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id string) (model.Account, error) {
	return s.store.GetByID(ctx, id)
}

// UpdateBalance writes an absolute balance and mirrored equity, clamped at
// zero. Reconciliation uses it to restore the canonical balance; settlement
// paths use AdjustBalance instead.
func (s *Service) UpdateBalance(ctx context.Context, accountID string, newBalance decimal.Decimal) error {
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}
	if err := s.store.UpdateBalance(ctx, accountID, newBalance); err != nil {
		return errs.NewPersistence("accounts.update_balance", true, err)
	}
	return nil
}

// AdjustBalance settles a delta against the stored balance atomically and
// returns the resulting balance, clamped at zero by the store.
func (s *Service) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, err := s.store.AdjustBalance(ctx, accountID, delta)
	if err != nil {
		return decimal.Decimal{}, errs.NewPersistence("accounts.adjust_balance", true, err)
	}
	return balance, nil
}

func (s *Service) IncrementTradeCounters(ctx context.Context, accountID string, winning bool) error {
	return s.store.IncrementTradeCounters(ctx, accountID, winning)
}

// ArchiveAndReset renames the current account for the tier and creates a
// fresh one. The archived row and everything hanging off it survive for
// audit; history is never destroyed.
func (s *Service) ArchiveAndReset(ctx context.Context, traderID, tierName string) (model.Account, error) {
	t, ok := s.resolveTier(tierName)
	if !ok {
		return model.Account{}, errs.Validationf("unknown tier %q", tierName)
	}
	current, err := s.store.GetByTraderTier(ctx, traderID, t.Name)
	if err != nil && !errors.Is(err, ErrNoAccount) {
		return model.Account{}, errs.NewPersistence("accounts.get", false, err)
	}
	if err == nil {
		if err := s.store.ArchiveRename(ctx, current.ID, ArchiveSuffix(time.Now())); err != nil {
			return model.Account{}, errs.NewPersistence("accounts.archive", true, err)
		}
		s.log.WithFields(logrus.Fields{"account": current.ID, "trader": traderID}).Info("archived challenge account")
	}
	return s.create(ctx, traderID, t)
}

func (s *Service) Tiers() *tier.Registry {
	return s.tiers
}

func (s *Service) resolveTier(name string) (tier.Tier, bool) {
	if name == "" {
		return s.tiers.Default(), true
	}
	return s.tiers.Get(name)
}

func configDrifted(a model.Account, t tier.Tier) bool {
	if !a.ProfitTarget.Equal(t.ProfitTarget) || !a.MaxTotalDrawdown.Equal(t.MaxDrawdown) {
		return true
	}
	if a.MinTradingDays != t.MinTradingDays {
		return true
	}
	if t.DailyLossEnabled() != (a.MaxDailyLoss != nil) {
		return true
	}
	if a.MaxDailyLoss != nil && !a.MaxDailyLoss.Equal(t.MaxDailyLoss) {
		return true
	}
	return false
}
