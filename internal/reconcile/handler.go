package reconcile

import (
	"net/http"
	"strings"

	"pf-challenge/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type runRequest struct {
	TraderID string `json:"trader_id"`
	Tier     string `json:"tier"`
}

// RunSelf reconciles the authenticated trader's own account.
func (h *Handler) RunSelf(w http.ResponseWriter, r *http.Request, traderID string) {
	var req runRequest
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
	}
	res, err := h.svc.Run(r.Context(), traderID, strings.TrimSpace(req.Tier))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// RunInternal reconciles any trader; reachable only behind the internal token.
func (h *Handler) RunInternal(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.TraderID) == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "trader_id is required"})
		return
	}
	res, err := h.svc.Run(r.Context(), req.TraderID, strings.TrimSpace(req.Tier))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
