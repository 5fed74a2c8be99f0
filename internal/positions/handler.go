package positions

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

type openRequest struct {
	Tier       string `json:"tier"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Notional   string `json:"notional"`
	Leverage   string `json:"leverage"`
	TakeProfit string `json:"take_profit"`
	StopLoss   string `json:"stop_loss"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request, traderID string) {
	var req openRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
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
	res, err := h.svc.OpenMarket(r.Context(), OpenRequest{
		TraderID:   traderID,
		Tier:       strings.TrimSpace(req.Tier),
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:       types.PositionSide(strings.ToLower(req.Side)),
		Notional:   notional,
		Leverage:   leverage,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// Close settles at the current oracle price. The exit price is never taken
// from the request; callers only name the position.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request, traderID string) {
	positionID := chi.URLParam(r, "id")
	if positionID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "position id is required"})
		return
	}
	res, err := h.svc.Close(r.Context(), CloseRequest{
		PositionID: positionID,
		TraderID:   traderID,
		Reason:     types.CloseReasonManual,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
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
