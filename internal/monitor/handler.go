package monitor

import (
	"net/http"

	"pf-challenge/internal/httputil"
	"pf-challenge/internal/orders"
)

// Handler exposes the sweeps as internal endpoints so an operator can force a
// tick outside the polling cadence.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CheckPositions(w http.ResponseWriter, r *http.Request) {
	prices, err := h.svc.snapshotForOpen(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	closed, err := h.svc.CheckPositions(r.Context(), prices)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if closed == nil {
		closed = []ClosedPosition{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

func (h *Handler) CheckOrders(w http.ResponseWriter, r *http.Request) {
	filled, err := h.svc.orders.CheckPending(r.Context(), h.svc.prices.Snapshot(nil))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filled == nil {
		filled = []orders.FillOutcome{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"filled": filled})
}
