package monitor

import (
	"context"
	"sync"
	"testing"

	"pf-challenge/internal/errs"
	"pf-challenge/internal/model"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/positions"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// Long from 50000 at 10x: liquidation 45250.
func longPosition() model.Position {
	return model.Position{
		ID:               "pos-1",
		AccountID:        "acc-1",
		Symbol:           "BTCUSDT",
		Side:             types.PositionSideLong,
		EntryPrice:       d("50000"),
		Quantity:         d("0.1"),
		Leverage:         d("10"),
		Margin:           d("500"),
		LiquidationPrice: d("45250"),
		TakeProfit:       dp("55000"),
		StopLoss:         dp("47000"),
		Status:           types.PositionStatusOpen,
	}
}

func shortPosition() model.Position {
	p := longPosition()
	p.ID = "pos-2"
	p.Side = types.PositionSideShort
	p.LiquidationPrice = d("54750")
	p.TakeProfit = dp("45000")
	p.StopLoss = dp("53000")
	return p
}

func TestDecideCloseLong(t *testing.T) {
	p := longPosition()

	cases := []struct {
		name   string
		price  string
		reason types.CloseReason
		hit    bool
	}{
		{"inside band", "50000", "", false},
		{"take profit", "55000", types.CloseReasonTakeProfit, true},
		{"stop loss", "47000", types.CloseReasonStopLoss, true},
		{"liquidation", "45250", types.CloseReasonLiquidation, true},
		{"below liquidation", "44000", types.CloseReasonLiquidation, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, hit := DecideClose(p, d(tc.price))
			assert.Equal(t, tc.hit, hit)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestDecideCloseShort(t *testing.T) {
	p := shortPosition()

	cases := []struct {
		name   string
		price  string
		reason types.CloseReason
		hit    bool
	}{
		{"inside band", "50000", "", false},
		{"take profit", "45000", types.CloseReasonTakeProfit, true},
		{"stop loss", "53000", types.CloseReasonStopLoss, true},
		{"liquidation", "54750", types.CloseReasonLiquidation, true},
		{"above liquidation", "60000", types.CloseReasonLiquidation, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, hit := DecideClose(p, d(tc.price))
			assert.Equal(t, tc.hit, hit)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

// Liquidation must win even when a stop-loss sits below the liquidation price
// and both trigger on the same tick.
func TestDecideClosePriority(t *testing.T) {
	p := longPosition()
	p.StopLoss = dp("46000")

	reason, hit := DecideClose(p, d("45000"))
	require.True(t, hit)
	assert.Equal(t, types.CloseReasonLiquidation, reason)
}

func TestDecideCloseWithoutTargets(t *testing.T) {
	p := longPosition()
	p.TakeProfit = nil
	p.StopLoss = nil

	_, hit := DecideClose(p, d("100000"))
	assert.False(t, hit)

	reason, hit := DecideClose(p, d("45000"))
	assert.True(t, hit)
	assert.Equal(t, types.CloseReasonLiquidation, reason)
}

type fakeLister struct {
	open []model.Position
}

func (f *fakeLister) ListAllOpen(context.Context) ([]model.Position, error) { return f.open, nil }

func (f *fakeLister) OpenSymbols(context.Context) ([]string, error) {
	var out []string
	for _, p := range f.open {
		out = append(out, p.Symbol)
	}
	return out, nil
}

type fakeCloser struct {
	mu      sync.Mutex
	reasons map[string]types.CloseReason
	err     error
}

func (f *fakeCloser) Close(_ context.Context, req positions.CloseRequest) (positions.CloseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return positions.CloseResult{}, f.err
	}
	if f.reasons == nil {
		f.reasons = map[string]types.CloseReason{}
	}
	f.reasons[req.PositionID] = req.Reason
	return positions.CloseResult{
		Position:    model.Position{ID: req.PositionID, Status: types.PositionStatusClosed},
		RealizedPnL: d("-300"),
	}, nil
}

func newMonitor(lister *fakeLister, closer *fakeCloser) *Service {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return NewService(lister, closer, nil, nil, 0, 0, log)
}

func TestCheckPositionsClosesTriggered(t *testing.T) {
	long := longPosition()
	short := shortPosition()
	short.Symbol = "ETHUSDT"
	lister := &fakeLister{open: []model.Position{long, short}}
	closer := &fakeCloser{}
	svc := newMonitor(lister, closer)

	closed, err := svc.CheckPositions(context.Background(), map[string]oracle.Quote{
		"BTCUSDT": {Price: d("47000")}, // long stop-loss
		"ETHUSDT": {Price: d("50000")}, // short inside its band
	})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, long.ID, closed[0].Position.ID)
	assert.Equal(t, types.CloseReasonStopLoss, closed[0].Reason)
	assert.Equal(t, types.CloseReasonStopLoss, closer.reasons[long.ID])
}

func TestCheckPositionsSkipsMissingQuote(t *testing.T) {
	lister := &fakeLister{open: []model.Position{longPosition()}}
	closer := &fakeCloser{}
	svc := newMonitor(lister, closer)

	closed, err := svc.CheckPositions(context.Background(), map[string]oracle.Quote{})
	require.NoError(t, err)
	assert.Empty(t, closed)
	assert.Empty(t, closer.reasons)
}

func TestCheckPositionsToleratesLostRace(t *testing.T) {
	lister := &fakeLister{open: []model.Position{longPosition()}}
	closer := &fakeCloser{err: errs.ErrConcurrencyLost}
	svc := newMonitor(lister, closer)

	closed, err := svc.CheckPositions(context.Background(), map[string]oracle.Quote{
		"BTCUSDT": {Price: d("45000")},
	})
	require.NoError(t, err)
	assert.Empty(t, closed)
}
