package oracle

import (
	"net/http"
	"time"

	"pf-challenge/internal/httputil"

	"github.com/shopspring/decimal"
)

// Handler receives price pushes from the external feed. The engine never
// talks to the feed itself; this is its only inbound surface.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type pushedQuote struct {
	Price     string `json:"price"`
	Change24h string `json:"change_24h"`
	High24h   string `json:"high_24h"`
	Low24h    string `json:"low_24h"`
	Volume24h string `json:"volume_24h"`
}

type pushRequest struct {
	Prices map[string]pushedQuote `json:"prices"`
}

func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	accepted := 0
	now := time.Now().UTC()
	for symbol, pq := range req.Prices {
		price, err := decimal.NewFromString(pq.Price)
		if err != nil || !price.GreaterThan(decimal.Zero) {
			continue
		}
		h.store.Set(symbol, Quote{
			Price:     price,
			Change24h: parseOrZero(pq.Change24h),
			High24h:   parseOrZero(pq.High24h),
			Low24h:    parseOrZero(pq.Low24h),
			Volume24h: parseOrZero(pq.Volume24h),
			UpdatedAt: now,
		})
		accepted++
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}

func parseOrZero(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
