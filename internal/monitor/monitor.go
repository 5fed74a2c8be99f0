package monitor

import (
	"context"
	"math/rand"
	"time"

	"pf-challenge/internal/errs"
	"pf-challenge/internal/model"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/orders"
	"pf-challenge/internal/positions"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type PositionLister interface {
	ListAllOpen(ctx context.Context) ([]model.Position, error)
	OpenSymbols(ctx context.Context) ([]string, error)
}

type Closer interface {
	Close(ctx context.Context, req positions.CloseRequest) (positions.CloseResult, error)
}

type OrderChecker interface {
	CheckPending(ctx context.Context, prices map[string]oracle.Quote) ([]orders.FillOutcome, error)
}

type PriceSource interface {
	Snapshot(symbols []string) map[string]oracle.Quote
}

// Service owns the two polling sweeps: TP/SL & liquidation over open
// positions, and fill triggers over resting orders. Loops live until their
// context is cancelled.
type Service struct {
	posList  PositionLister
	closer   Closer
	orders   OrderChecker
	prices   PriceSource
	interval time.Duration
	jitter   time.Duration
	log      *logrus.Logger
}

func NewService(posList PositionLister, closer Closer, orderChecker OrderChecker, prices PriceSource, interval, jitter time.Duration, log *logrus.Logger) *Service {
	return &Service{posList: posList, closer: closer, orders: orderChecker, prices: prices, interval: interval, jitter: jitter, log: log}
}

// DecideClose evaluates one open position against a price in strict priority
// order: liquidation first, then take-profit, then stop-loss.
func DecideClose(p model.Position, price decimal.Decimal) (types.CloseReason, bool) {
	if p.Side == types.PositionSideLong {
		if price.LessThanOrEqual(p.LiquidationPrice) {
			return types.CloseReasonLiquidation, true
		}
		if p.TakeProfit != nil && price.GreaterThanOrEqual(*p.TakeProfit) {
			return types.CloseReasonTakeProfit, true
		}
		if p.StopLoss != nil && price.LessThanOrEqual(*p.StopLoss) {
			return types.CloseReasonStopLoss, true
		}
		return "", false
	}
	if price.GreaterThanOrEqual(p.LiquidationPrice) {
		return types.CloseReasonLiquidation, true
	}
	if p.TakeProfit != nil && price.LessThanOrEqual(*p.TakeProfit) {
		return types.CloseReasonTakeProfit, true
	}
	if p.StopLoss != nil && price.GreaterThanOrEqual(*p.StopLoss) {
		return types.CloseReasonStopLoss, true
	}
	return "", false
}

type ClosedPosition struct {
	Position model.Position    `json:"position"`
	Reason   types.CloseReason `json:"reason"`
	PnL      decimal.Decimal   `json:"pnl"`
}

// CheckPositions sweeps every open position once. Losing the close race to a
// manual close or another sweep is routine and skipped silently; a missing
// quote skips the position until the next tick.
func (s *Service) CheckPositions(ctx context.Context, prices map[string]oracle.Quote) ([]ClosedPosition, error) {
	open, err := s.posList.ListAllOpen(ctx)
	if err != nil {
		return nil, err
	}
	var closed []ClosedPosition
	for _, p := range open {
		q, ok := prices[p.Symbol]
		if !ok || !q.Price.GreaterThan(decimal.Zero) {
			continue
		}
		reason, hit := DecideClose(p, q.Price)
		if !hit {
			continue
		}
		price := q.Price
		res, err := s.closer.Close(ctx, positions.CloseRequest{PositionID: p.ID, Price: &price, Reason: reason})
		if err != nil {
			if !errs.IsRecoverable(err) {
				s.log.WithError(err).WithField("position", p.ID).Warn("automatic close failed")
			}
			continue
		}
		closed = append(closed, ClosedPosition{Position: res.Position, Reason: reason, PnL: res.RealizedPnL})
	}
	return closed, nil
}

// snapshotForOpen pulls quotes only for symbols carrying open interest.
func (s *Service) snapshotForOpen(ctx context.Context) (map[string]oracle.Quote, error) {
	symbols, err := s.posList.OpenSymbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return map[string]oracle.Quote{}, nil
	}
	return s.prices.Snapshot(symbols), nil
}

// Run starts both sweep loops and blocks until ctx is cancelled. Each tick
// carries bounded jitter so independent deployments do not sweep in lockstep.
func (s *Service) Run(ctx context.Context) {
	go s.loop(ctx, "tpsl", func(ctx context.Context) {
		prices, err := s.snapshotForOpen(ctx)
		if err != nil {
			s.log.WithError(err).Warn("position sweep skipped")
			return
		}
		if _, err := s.CheckPositions(ctx, prices); err != nil {
			s.log.WithError(err).Warn("position sweep failed")
		}
	})
	go s.loop(ctx, "orders", func(ctx context.Context) {
		if _, err := s.orders.CheckPending(ctx, s.prices.Snapshot(nil)); err != nil {
			s.log.WithError(err).Warn("order sweep failed")
		}
	})
	<-ctx.Done()
}

func (s *Service) loop(ctx context.Context, name string, tick func(context.Context)) {
	s.log.WithFields(logrus.Fields{"monitor": name, "interval": s.interval.String()}).Info("monitor started")
	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.WithField("monitor", name).Info("monitor stopped")
			return
		case <-timer.C:
			tick(ctx)
			timer.Reset(s.nextDelay())
		}
	}
}

func (s *Service) nextDelay() time.Duration {
	if s.jitter <= 0 {
		return s.interval
	}
	return s.interval + time.Duration(rand.Int63n(int64(s.jitter)))
}
