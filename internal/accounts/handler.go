package accounts

import (
	"context"
	"net/http"
	"strings"

	"pf-challenge/internal/httputil"
	"pf-challenge/internal/model"
	"pf-challenge/internal/risk"
)

type OpenPositions interface {
	ListOpen(ctx context.Context, accountID string) ([]model.Position, error)
}

type OpenOrders interface {
	ListOpen(ctx context.Context, accountID string) ([]model.Order, error)
}

type RecentTrades interface {
	ListRecent(ctx context.Context, accountID string, limit int) ([]model.Trade, error)
}

type StateComputer interface {
	StateFor(ctx context.Context, acc model.Account, open []model.Position) (risk.State, error)
}

type Handler struct {
	svc       *Service
	positions OpenPositions
	orders    OpenOrders
	trades    RecentTrades
	state     StateComputer
}

func NewHandler(svc *Service, positions OpenPositions, orders OpenOrders, trades RecentTrades, state StateComputer) *Handler {
	return &Handler{svc: svc, positions: positions, orders: orders, trades: trades, state: state}
}

type accountStateResponse struct {
	Account      model.Account    `json:"account"`
	Equity       string           `json:"equity"`
	TradingDays  int              `json:"trading_days"`
	PendingPass  bool             `json:"pending_pass"`
	Positions    []model.Position `json:"positions"`
	Orders       []model.Order    `json:"orders"`
	RecentTrades []model.Trade    `json:"recent_trades"`
}

// State assembles the full account view: the row itself, open positions and
// orders, recent fills, recomputed equity and the trading-day count.
func (h *Handler) State(w http.ResponseWriter, r *http.Request, traderID string) {
	tier := strings.TrimSpace(r.URL.Query().Get("tier"))
	acc, err := h.svc.GetOrCreate(r.Context(), traderID, tier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	open, err := h.positions.ListOpen(r.Context(), acc.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orders, err := h.orders.ListOpen(r.Context(), acc.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recent, err := h.trades.ListRecent(r.Context(), acc.ID, 50)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	st, err := h.state.StateFor(r.Context(), acc, open)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if open == nil {
		open = []model.Position{}
	}
	if orders == nil {
		orders = []model.Order{}
	}
	if recent == nil {
		recent = []model.Trade{}
	}
	httputil.WriteJSON(w, http.StatusOK, accountStateResponse{
		Account:      acc,
		Equity:       st.Equity.String(),
		TradingDays:  st.TradingDays,
		PendingPass:  st.PendingPass,
		Positions:    open,
		Orders:       orders,
		RecentTrades: recent,
	})
}

type resetRequest struct {
	Tier string `json:"tier"`
}

// Reset archives the current attempt and starts a fresh one.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request, traderID string) {
	var req resetRequest
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
	}
	acc, err := h.svc.ArchiveAndReset(r.Context(), traderID, strings.TrimSpace(req.Tier))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acc)
}
