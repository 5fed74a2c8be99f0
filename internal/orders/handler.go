package orders

import (
	"net/http"
	"strings"

	"pf-challenge/internal/httputil"
	"pf-challenge/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type placeRequest struct {
	Tier       string `json:"tier"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Price      string `json:"price"`
	StopPrice  string `json:"stop_price"`
	Notional   string `json:"notional"`
	Leverage   string `json:"leverage"`
	TakeProfit string `json:"take_profit"`
	StopLoss   string `json:"stop_loss"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, traderID string) {
	var req placeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid price"})
		return
	}
	notional, err := decimal.NewFromString(req.Notional)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid notional"})
		return
	}
	leverage, err := decimal.NewFromString(req.Leverage)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid leverage"})
		return
	}
	stopPrice, err := optionalDecimal(req.StopPrice)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid stop_price"})
		return
	}
	takeProfit, err := optionalDecimal(req.TakeProfit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid take_profit"})
		return
	}
	stopLoss, err := optionalDecimal(req.StopLoss)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid stop_loss"})
		return
	}
	o, err := h.svc.Place(r.Context(), PlaceRequest{
		TraderID:   traderID,
		Tier:       strings.TrimSpace(req.Tier),
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:       types.OrderSide(strings.ToLower(req.Side)),
		Type:       types.OrderType(strings.ToLower(req.Type)),
		Price:      price,
		StopPrice:  stopPrice,
		Notional:   notional,
		Leverage:   leverage,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, traderID string) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "order id is required"})
		return
	}
	o, err := h.svc.Cancel(r.Context(), traderID, orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
