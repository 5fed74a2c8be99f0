package reconcile

import (
	"context"
	"testing"

	"pf-challenge/internal/model"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeState struct {
	account  model.Account
	realized decimal.Decimal
	total    int
	winning  int
	open     []model.Position

	updatedBalance *decimal.Decimal
	setCounters    bool
}

func (f *fakeState) GetOrCreate(context.Context, string, string) (model.Account, error) {
	return f.account, nil
}

func (f *fakeState) UpdateBalance(_ context.Context, _ string, balance decimal.Decimal) error {
	f.updatedBalance = &balance
	f.account.CurrentBalance = balance
	return nil
}

func (f *fakeState) SetTradeCounters(_ context.Context, _ string, total, winning int) error {
	f.setCounters = true
	f.account.TotalTrades = total
	f.account.WinningTrades = winning
	return nil
}

func (f *fakeState) RealizedTotals(context.Context, string) (decimal.Decimal, int, int, error) {
	return f.realized, f.total, f.winning, nil
}

func (f *fakeState) ListOpenByAccount(context.Context, string) ([]model.Position, error) {
	return f.open, nil
}

func newReconciler(state *fakeState) *Service {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return NewService(state, state, state, state, d("0.01"), log)
}

func TestCanonicalBalance(t *testing.T) {
	assert.True(t, d("9900").Equal(CanonicalBalance(d("10000"), d("-100"), decimal.Zero)))
	assert.True(t, d("9400").Equal(CanonicalBalance(d("10000"), d("-100"), d("500"))))
	assert.True(t, CanonicalBalance(d("10000"), d("-12000"), decimal.Zero).IsZero(), "clamped at zero")
}

// Ledger says +200 then -300 realized with nothing open, but the stored
// balance still reads 10000: a close whose balance write was lost.
func TestRunCorrectsDriftedBalance(t *testing.T) {
	state := &fakeState{
		account: model.Account{
			ID:             "acc-1",
			InitialBalance: d("10000"),
			CurrentBalance: d("10000"),
			Status:         types.AccountStatusActive,
			TotalTrades:    1,
			WinningTrades:  1,
		},
		realized: d("-100"), // +200 - 300
		total:    2,
		winning:  1,
	}
	svc := newReconciler(state)

	res, err := svc.Run(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	assert.False(t, res.AlreadyCorrect)
	assert.True(t, d("9900").Equal(res.NewBalance), "got %s", res.NewBalance)
	assert.True(t, d("-100").Equal(res.Delta))
	require.NotNil(t, state.updatedBalance)
	assert.True(t, d("9900").Equal(*state.updatedBalance))
	assert.Equal(t, 2, state.account.TotalTrades)
	assert.Equal(t, 1, state.account.WinningTrades)
}

func TestRunIsIdempotent(t *testing.T) {
	state := &fakeState{
		account: model.Account{
			ID:             "acc-1",
			InitialBalance: d("10000"),
			CurrentBalance: d("10000"),
		},
		realized: d("-100"),
		total:    2,
		winning:  1,
	}
	svc := newReconciler(state)

	first, err := svc.Run(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	require.False(t, first.AlreadyCorrect)

	second, err := svc.Run(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	assert.True(t, second.AlreadyCorrect)
	assert.True(t, second.Delta.IsZero())
	assert.True(t, d("9900").Equal(second.NewBalance))
}

func TestRunCountsOpenMargin(t *testing.T) {
	state := &fakeState{
		account: model.Account{
			ID:             "acc-1",
			InitialBalance: d("10000"),
			CurrentBalance: d("9500"),
		},
		open: []model.Position{
			{ID: "pos-1", Margin: d("500"), Status: types.PositionStatusOpen},
		},
	}
	svc := newReconciler(state)

	res, err := svc.Run(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	assert.True(t, res.AlreadyCorrect, "margin-backed balance is already canonical")
	assert.Nil(t, state.updatedBalance)
}

func TestRunToleratesRoundingInsideEpsilon(t *testing.T) {
	state := &fakeState{
		account: model.Account{
			ID:             "acc-1",
			InitialBalance: d("10000"),
			CurrentBalance: d("10000.005"),
		},
	}
	svc := newReconciler(state)

	res, err := svc.Run(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	assert.True(t, res.AlreadyCorrect)
	assert.True(t, d("10000.005").Equal(res.NewBalance), "stored balance kept")
}

func TestRunRepairsCountersWithoutBalanceDrift(t *testing.T) {
	state := &fakeState{
		account: model.Account{
			ID:             "acc-1",
			InitialBalance: d("10000"),
			CurrentBalance: d("9900"),
			TotalTrades:    0,
		},
		realized: d("-100"),
		total:    2,
		winning:  1,
	}
	svc := newReconciler(state)

	res, err := svc.Run(context.Background(), "trader-1", "starter")
	require.NoError(t, err)
	assert.True(t, res.AlreadyCorrect)
	assert.True(t, state.setCounters)
	assert.Equal(t, 2, state.account.TotalTrades)
}
