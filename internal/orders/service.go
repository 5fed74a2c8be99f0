package orders

import (
	"context"
	"errors"

	"pf-challenge/internal/errs"
	"pf-challenge/internal/events"
	"pf-challenge/internal/model"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/positions"
	"pf-challenge/internal/tier"
	"pf-challenge/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Insert(ctx context.Context, o model.Order) (string, error)
	GetByID(ctx context.Context, id string) (model.Order, error)
	ListOpenByAccount(ctx context.Context, accountID string) ([]model.Order, error)
	ListAllOpen(ctx context.Context) ([]model.Order, error)
	ClaimFill(ctx context.Context, id string) (bool, error)
	RevertFill(ctx context.Context, id string) (bool, error)
	ClaimCancel(ctx context.Context, id string) (bool, error)
}

type AccountLedger interface {
	GetOrCreate(ctx context.Context, traderID, tierName string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
}

// Opener executes a claimed order as a market open at its stored price.
type Opener interface {
	OpenMarket(ctx context.Context, req positions.OpenRequest) (positions.OpenResult, error)
}

type Publisher interface {
	Publish(eventType string, data any)
}

type Service struct {
	store  Store
	ledger AccountLedger
	opener Opener
	tiers  *tier.Registry
	pub    Publisher
	log    *logrus.Logger
}

func NewService(store Store, ledger AccountLedger, opener Opener, tiers *tier.Registry, pub Publisher, log *logrus.Logger) *Service {
	return &Service{store: store, ledger: ledger, opener: opener, tiers: tiers, pub: pub, log: log}
}

type PlaceRequest struct {
	TraderID   string
	Tier       string
	Symbol     string
	Side       types.OrderSide
	Type       types.OrderType
	Price      decimal.Decimal
	StopPrice  *decimal.Decimal
	Notional   decimal.Decimal
	Leverage   decimal.Decimal
	TakeProfit *decimal.Decimal
	StopLoss   *decimal.Decimal
}

// Place rests a LIMIT or STOP_LIMIT order. Margin sufficiency is checked at
// placement against the free balance; the fill re-checks it.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (model.Order, error) {
	if req.Symbol == "" {
		return model.Order{}, errs.Validationf("symbol is required")
	}
	if req.Side != types.OrderSideBuy && req.Side != types.OrderSideSell {
		return model.Order{}, errs.Validationf("side must be buy or sell")
	}
	if req.Type != types.OrderTypeLimit && req.Type != types.OrderTypeStopLimit {
		return model.Order{}, errs.Validationf("type must be limit or stop_limit")
	}
	if !req.Price.GreaterThan(decimal.Zero) {
		return model.Order{}, errs.Validationf("price must be positive")
	}
	if req.Type == types.OrderTypeStopLimit {
		if req.StopPrice == nil || !req.StopPrice.GreaterThan(decimal.Zero) {
			return model.Order{}, errs.Validationf("stop price must be positive for stop-limit orders")
		}
	}
	if !req.Notional.GreaterThan(decimal.Zero) {
		return model.Order{}, errs.Validationf("size must be positive")
	}
	if !req.Leverage.GreaterThan(decimal.Zero) {
		return model.Order{}, errs.Validationf("leverage must be positive")
	}

	acc, err := s.ledger.GetOrCreate(ctx, req.TraderID, req.Tier)
	if err != nil {
		return model.Order{}, err
	}
	if acc.Status != types.AccountStatusActive {
		return model.Order{}, errs.Validationf("challenge is %s; trading is disabled", acc.Status)
	}
	if s.tiers != nil {
		if t, ok := s.tiers.Get(acc.Tier); ok && req.Leverage.GreaterThan(t.MaxLeverage) {
			return model.Order{}, errs.Validationf("max leverage for this instrument is %s×", t.MaxLeverage.String())
		}
	}
	if positions.MarginFor(req.Notional, req.Leverage).GreaterThan(acc.CurrentBalance) {
		return model.Order{}, errs.ErrInsufficientBalance
	}

	o := model.Order{
		AccountID:  acc.ID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Price:      req.Price,
		StopPrice:  req.StopPrice,
		Notional:   req.Notional,
		Leverage:   req.Leverage,
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		Status:     types.OrderStatusOpen,
	}
	id, err := s.store.Insert(ctx, o)
	if err != nil {
		return model.Order{}, errs.NewPersistence("orders.insert", true, err)
	}
	o.ID = id
	if s.pub != nil {
		s.pub.Publish(events.TypeOrderPlaced, o)
	}
	s.log.WithFields(logrus.Fields{"order": id, "account": acc.ID, "symbol": req.Symbol, "type": req.Type}).Info("placed order")
	return o, nil
}

// Cancel transitions open→cancelled, scoped to the owning trader. An order
// already terminal reports as not found.
func (s *Service) Cancel(ctx context.Context, traderID, orderID string) (model.Order, error) {
	o, err := s.store.GetByID(ctx, orderID)
	if errors.Is(err, ErrNoOrder) {
		return model.Order{}, errs.ErrNotFoundOrTerminal
	}
	if err != nil {
		return model.Order{}, errs.NewPersistence("orders.get", false, err)
	}
	owner, err := s.ledger.GetByID(ctx, o.AccountID)
	if err != nil {
		return model.Order{}, err
	}
	if owner.TraderID != traderID {
		return model.Order{}, errs.ErrNotFoundOrTerminal
	}
	ok, err := s.store.ClaimCancel(ctx, orderID)
	if err != nil {
		return model.Order{}, errs.NewPersistence("orders.cancel", true, err)
	}
	if !ok {
		return model.Order{}, errs.ErrNotFoundOrTerminal
	}
	o.Status = types.OrderStatusCancelled
	if s.pub != nil {
		s.pub.Publish(events.TypeOrderCancelled, o)
	}
	return o, nil
}

func (s *Service) ListOpen(ctx context.Context, accountID string) ([]model.Order, error) {
	return s.store.ListOpenByAccount(ctx, accountID)
}

type FillOutcome struct {
	Order    model.Order    `json:"order"`
	Position model.Position `json:"position"`
}

// CheckPending sweeps all resting orders against the price map. Each fill is
// best effort: claim the order, execute at its stored price, and revert the
// claim if execution fails so the order stays eligible next tick. A symbol
// absent from the map skips its orders for this tick.
func (s *Service) CheckPending(ctx context.Context, prices map[string]oracle.Quote) ([]FillOutcome, error) {
	open, err := s.store.ListAllOpen(ctx)
	if err != nil {
		return nil, errs.NewPersistence("orders.list_open", false, err)
	}
	var filled []FillOutcome
	for _, o := range open {
		q, ok := prices[o.Symbol]
		if !ok {
			continue
		}
		if !ShouldFill(o, q.Price) {
			continue
		}
		claimed, err := s.store.ClaimFill(ctx, o.ID)
		if err != nil {
			s.log.WithError(err).WithField("order", o.ID).Warn("fill claim failed")
			continue
		}
		if !claimed {
			continue
		}
		execPrice := o.Price
		res, err := s.opener.OpenMarket(ctx, positions.OpenRequest{
			AccountID:  o.AccountID,
			Symbol:     o.Symbol,
			Side:       types.PositionSideForOrder(o.Side),
			Notional:   o.Notional,
			Leverage:   o.Leverage,
			TakeProfit: o.TakeProfit,
			StopLoss:   o.StopLoss,
			Price:      &execPrice,
		})
		if err != nil {
			if _, revertErr := s.store.RevertFill(ctx, o.ID); revertErr != nil {
				s.log.WithError(revertErr).WithField("order", o.ID).Error("fill revert failed; order stuck filled without a position")
			}
			s.log.WithError(err).WithField("order", o.ID).Warn("order execution failed, claim reverted")
			continue
		}
		o.Status = types.OrderStatusFilled
		filled = append(filled, FillOutcome{Order: o, Position: res.Position})
		if s.pub != nil {
			s.pub.Publish(events.TypeOrderFilled, o)
		}
		s.log.WithFields(logrus.Fields{"order": o.ID, "position": res.Position.ID}).Info("filled pending order")
	}
	return filled, nil
}
