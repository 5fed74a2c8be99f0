package httpserver

import (
	"net/http"

	"pf-challenge/internal/accounts"
	"pf-challenge/internal/httputil"
	"pf-challenge/internal/monitor"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/orders"
	"pf-challenge/internal/positions"
	"pf-challenge/internal/reconcile"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AccountsHandler  *accounts.Handler
	PositionsHandler *positions.Handler
	OrdersHandler    *orders.Handler
	ReconcileHandler *reconcile.Handler
	MonitorHandler   *monitor.Handler
	OracleHandler    *oracle.Handler
	WSHandler        http.Handler
	JWTIssuer        string
	JWTSecret        string
	InternalHash     string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/v1", func(r chi.Router) {
		r.Get("/events/ws", d.WSHandler.ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.JWTIssuer, []byte(d.JWTSecret)))
			r.Get("/account", withTrader(d.AccountsHandler.State))
			r.Post("/account/reset", withTrader(d.AccountsHandler.Reset))
			r.Post("/account/reconcile", withTrader(d.ReconcileHandler.RunSelf))
			r.Post("/positions", withTrader(d.PositionsHandler.Open))
			r.Post("/positions/{id}/close", withTrader(d.PositionsHandler.Close))
			r.Post("/orders", withTrader(d.OrdersHandler.Place))
			r.Post("/orders/{id}/cancel", withTrader(d.OrdersHandler.Cancel))
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAuth(d.InternalHash))
		r.Post("/prices", d.OracleHandler.Push)
		r.Post("/check-positions", d.MonitorHandler.CheckPositions)
		r.Post("/check-orders", d.MonitorHandler.CheckOrders)
		r.Post("/reconcile", d.ReconcileHandler.RunInternal)
	})

	return r
}

func withTrader(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traderID, ok := TraderID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		h(w, r, traderID)
	}
}
