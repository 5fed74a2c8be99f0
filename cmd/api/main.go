package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pf-challenge/internal/accounts"
	"pf-challenge/internal/config"
	"pf-challenge/internal/db"
	"pf-challenge/internal/events"
	"pf-challenge/internal/httpserver"
	"pf-challenge/internal/monitor"
	"pf-challenge/internal/oracle"
	"pf-challenge/internal/orders"
	"pf-challenge/internal/positions"
	"pf-challenge/internal/reconcile"
	"pf-challenge/internal/risk"
	"pf-challenge/internal/tier"
	"pf-challenge/internal/trades"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	tiers, err := tier.Load(cfg.TiersFile)
	if err != nil {
		log.Fatal(err)
	}
	epsilon, err := decimal.NewFromString(cfg.ReconcileEpsilon)
	if err != nil {
		log.Fatal("invalid RECONCILE_EPSILON")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal(err)
		}
	}

	bus := events.NewBus()
	prices := oracle.NewStore()

	accountStore := accounts.NewPGStore(pool)
	accountSvc := accounts.NewService(accountStore, tiers, log)
	positionStore := positions.NewPGStore(pool)
	orderStore := orders.NewPGStore(pool)
	tradeStore := trades.NewStore(pool)
	violationStore := risk.NewViolationStore(pool)

	riskSvc := risk.NewService(accountStore, positionStore, tradeStore, violationStore, prices, bus, log)
	positionSvc := positions.NewService(positionStore, accountSvc, tradeStore, prices, tiers, riskSvc, bus, log)
	orderSvc := orders.NewService(orderStore, accountSvc, positionSvc, tiers, bus, log)
	reconcileSvc := reconcile.NewService(accountSvc, accountStore, tradeStore, positionStore, epsilon, log)
	monitorSvc := monitor.NewService(positionStore, positionSvc, orderSvc, prices, cfg.MonitorInterval, cfg.MonitorJitter, log)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AccountsHandler:  accounts.NewHandler(accountSvc, positionSvc, orderSvc, tradeStore, riskSvc),
		PositionsHandler: positions.NewHandler(positionSvc),
		OrdersHandler:    orders.NewHandler(orderSvc),
		ReconcileHandler: reconcile.NewHandler(reconcileSvc),
		MonitorHandler:   monitor.NewHandler(monitorSvc),
		OracleHandler:    oracle.NewHandler(prices),
		WSHandler:        httpserver.NewWSHandler(bus, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.WebSocketOrigin),
		JWTIssuer:        cfg.JWTIssuer,
		JWTSecret:        cfg.JWTSecret,
		InternalHash:     cfg.InternalTokenHash,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go monitorSvc.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("engine listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
