package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"pf-challenge/internal/errs"
	"pf-challenge/internal/model"
	"pf-challenge/internal/tier"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAccounts struct {
	mu      sync.Mutex
	seq     int
	inserts int
	rows    map[string]model.Account
	// insertHook runs before every insert; the race tests use it to slip a
	// winner row in and fail the caller's own insert.
	insertHook func(m *memAccounts) error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{rows: make(map[string]model.Account)}
}

func (m *memAccounts) GetByTraderTier(_ context.Context, traderID, tierName string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.TraderID == traderID && a.Tier == tierName {
			return a, nil
		}
	}
	return model.Account{}, ErrNoAccount
}

func (m *memAccounts) GetByID(_ context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return model.Account{}, ErrNoAccount
	}
	return a, nil
}

func (m *memAccounts) Insert(_ context.Context, a model.Account) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertHook != nil {
		if err := m.insertHook(m); err != nil {
			return "", err
		}
	}
	for _, row := range m.rows {
		if row.TraderID == a.TraderID && row.Tier == a.Tier {
			return "", errors.New("duplicate trader/tier")
		}
	}
	m.seq++
	m.inserts++
	a.ID = fmt.Sprintf("acc-%d", m.seq)
	m.rows[a.ID] = a
	return a.ID, nil
}

func (m *memAccounts) UpdateRiskConfig(_ context.Context, id string, target, drawdown decimal.Decimal, dailyLoss *decimal.Decimal, minDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return ErrNoAccount
	}
	a.ProfitTarget = target
	a.MaxTotalDrawdown = drawdown
	a.MaxDailyLoss = dailyLoss
	a.MinTradingDays = minDays
	m.rows[id] = a
	return nil
}

func (m *memAccounts) UpdateBalance(_ context.Context, id string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return ErrNoAccount
	}
	a.CurrentBalance = balance
	a.Equity = balance
	m.rows[id] = a
	return nil
}

func (m *memAccounts) AdjustBalance(_ context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return decimal.Decimal{}, ErrNoAccount
	}
	balance := a.CurrentBalance.Add(delta)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	a.CurrentBalance = balance
	a.Equity = balance
	m.rows[id] = a
	return balance, nil
}

func (m *memAccounts) IncrementTradeCounters(_ context.Context, id string, winning bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return ErrNoAccount
	}
	a.TotalTrades++
	if winning {
		a.WinningTrades++
	}
	m.rows[id] = a
	return nil
}

func (m *memAccounts) ArchiveRename(_ context.Context, id, suffix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return ErrNoAccount
	}
	a.Tier += suffix
	a.Status = types.AccountStatusArchived
	m.rows[id] = a
	return nil
}

func (m *memAccounts) seed(a model.Account) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = fmt.Sprintf("acc-%d", m.seq)
	m.rows[a.ID] = a
	return a
}

func newLedgerService(t *testing.T, store *memAccounts) *Service {
	t.Helper()
	tiers, err := tier.Load("")
	require.NoError(t, err)
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return NewService(store, tiers, log)
}

func starterTier() tier.Tier {
	return tier.Tier{
		Name:           "starter",
		InitialBalance: decimal.NewFromInt(10000),
		ProfitTarget:   decimal.NewFromInt(1000),
		MaxDrawdown:    decimal.NewFromInt(800),
		MinTradingDays: 3,
		MaxLeverage:    decimal.NewFromInt(100),
	}
}

func accountFor(t tier.Tier) model.Account {
	a := model.Account{
		Tier:             t.Name,
		InitialBalance:   t.InitialBalance,
		CurrentBalance:   t.InitialBalance,
		ProfitTarget:     t.ProfitTarget,
		MaxTotalDrawdown: t.MaxDrawdown,
		MinTradingDays:   t.MinTradingDays,
	}
	if t.DailyLossEnabled() {
		v := t.MaxDailyLoss
		a.MaxDailyLoss = &v
	}
	return a
}

func TestConfigDrifted(t *testing.T) {
	def := starterTier()
	assert.False(t, configDrifted(accountFor(def), def))

	bumped := def
	bumped.ProfitTarget = decimal.NewFromInt(1200)
	assert.True(t, configDrifted(accountFor(def), bumped))

	days := def
	days.MinTradingDays = 5
	assert.True(t, configDrifted(accountFor(def), days))

	withDaily := def
	withDaily.MaxDailyLoss = decimal.NewFromInt(500)
	assert.True(t, configDrifted(accountFor(def), withDaily), "daily loss turned on")
	assert.False(t, configDrifted(accountFor(withDaily), withDaily))
	assert.True(t, configDrifted(accountFor(withDaily), def), "daily loss turned off")

	retuned := withDaily
	retuned.MaxDailyLoss = decimal.NewFromInt(600)
	assert.True(t, configDrifted(accountFor(withDaily), retuned))
}

func TestArchiveSuffix(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, "-archived-20260314T092653", ArchiveSuffix(at))
}

func TestGetOrCreateStampsFromTier(t *testing.T) {
	store := newMemAccounts()
	svc := newLedgerService(t, store)
	ctx := context.Background()

	acc, err := svc.GetOrCreate(ctx, "trader-1", "starter")
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "trader-1", acc.TraderID)
	assert.Equal(t, "starter", acc.Tier)
	assert.True(t, acc.InitialBalance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, acc.CurrentBalance.Equal(acc.InitialBalance))
	assert.True(t, acc.HighWaterMark.Equal(acc.InitialBalance))
	assert.True(t, acc.ProfitTarget.Equal(decimal.NewFromInt(1000)))
	assert.True(t, acc.MaxTotalDrawdown.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, 3, acc.MinTradingDays)
	assert.Nil(t, acc.MaxDailyLoss, "starter has no daily loss rule")
	assert.Equal(t, types.AccountStatusActive, acc.Status)

	again, err := svc.GetOrCreate(ctx, "trader-1", "starter")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, again.ID)
	assert.Equal(t, 1, store.inserts, "second access reuses the row")
}

func TestGetOrCreateDefaultsTier(t *testing.T) {
	svc := newLedgerService(t, newMemAccounts())

	acc, err := svc.GetOrCreate(context.Background(), "trader-1", "")
	require.NoError(t, err)
	assert.Equal(t, "starter", acc.Tier)
}

func TestGetOrCreateValidation(t *testing.T) {
	svc := newLedgerService(t, newMemAccounts())
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "", "starter")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.GetOrCreate(ctx, "trader-1", "no-such-tier")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestGetOrCreateHealsDriftedConfig(t *testing.T) {
	store := newMemAccounts()
	svc := newLedgerService(t, store)
	ctx := context.Background()

	stale := store.seed(model.Account{
		TraderID:         "trader-1",
		Tier:             "starter",
		InitialBalance:   decimal.NewFromInt(10000),
		CurrentBalance:   decimal.NewFromInt(9200),
		Equity:           decimal.NewFromInt(9200),
		ProfitTarget:     decimal.NewFromInt(500), // definition has since moved to 1000
		MaxTotalDrawdown: decimal.NewFromInt(800),
		MinTradingDays:   3,
		Status:           types.AccountStatusActive,
	})

	acc, err := svc.GetOrCreate(ctx, "trader-1", "starter")
	require.NoError(t, err)
	assert.Equal(t, stale.ID, acc.ID, "healed in place, not recreated")
	assert.True(t, acc.ProfitTarget.Equal(decimal.NewFromInt(1000)))
	assert.True(t, acc.CurrentBalance.Equal(decimal.NewFromInt(9200)), "balance untouched by the heal")

	row, err := store.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.True(t, row.ProfitTarget.Equal(decimal.NewFromInt(1000)), "heal persisted")
	assert.Equal(t, 0, store.inserts)
}

func TestGetOrCreateResolvesInsertRace(t *testing.T) {
	store := newMemAccounts()
	svc := newLedgerService(t, store)

	// A concurrent first access wins the insert between our miss and our
	// write; the unique index rejects ours and the winner is re-read.
	var winner model.Account
	store.insertHook = func(m *memAccounts) error {
		m.seq++
		winner = model.Account{
			ID:             fmt.Sprintf("acc-%d", m.seq),
			TraderID:       "trader-1",
			Tier:           "starter",
			InitialBalance: decimal.NewFromInt(10000),
			CurrentBalance: decimal.NewFromInt(10000),
			Status:         types.AccountStatusActive,
		}
		m.rows[winner.ID] = winner
		m.insertHook = nil
		return errors.New("duplicate key value violates unique constraint")
	}

	acc, err := svc.GetOrCreate(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, acc.ID, "loser adopts the winner's row")
	assert.Equal(t, 0, store.inserts)
}

func TestArchiveAndReset(t *testing.T) {
	store := newMemAccounts()
	svc := newLedgerService(t, store)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "trader-1", "starter")
	require.NoError(t, err)
	_, err = svc.AdjustBalance(ctx, first.ID, decimal.NewFromInt(-800))
	require.NoError(t, err)
	require.NoError(t, svc.IncrementTradeCounters(ctx, first.ID, false))

	fresh, err := svc.ArchiveAndReset(ctx, "trader-1", "starter")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.True(t, fresh.CurrentBalance.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 0, fresh.TotalTrades)

	// The old row survives under its archival name with history intact.
	old, err := store.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AccountStatusArchived, old.Status)
	assert.True(t, strings.HasPrefix(old.Tier, "starter-archived-"), "got %s", old.Tier)
	assert.True(t, old.CurrentBalance.Equal(decimal.NewFromInt(9200)))
	assert.Equal(t, 1, old.TotalTrades)
}

func TestArchiveAndResetWithoutExisting(t *testing.T) {
	store := newMemAccounts()
	svc := newLedgerService(t, store)

	acc, err := svc.ArchiveAndReset(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	assert.Equal(t, types.AccountStatusActive, acc.Status)
	assert.Equal(t, 1, store.inserts)
}

func TestAdjustBalanceClampsAtZero(t *testing.T) {
	store := newMemAccounts()
	svc := newLedgerService(t, store)
	ctx := context.Background()

	acc, err := svc.GetOrCreate(ctx, "trader-1", "starter")
	require.NoError(t, err)

	balance, err := svc.AdjustBalance(ctx, acc.ID, decimal.NewFromInt(-12000))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}
