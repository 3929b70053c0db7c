package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/config"
	"github.com/ariefcatur/go-bakery-orders/internal/httpx"
	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/logx"
	"github.com/ariefcatur/go-bakery-orders/internal/orders"
	"github.com/ariefcatur/go-bakery-orders/internal/postgres"
	"github.com/ariefcatur/go-bakery-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logx.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	db := postgres.New(pool, logger.Named("postgres"))

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger)
	pInventory := kafkax.NewProducer(cfg.KafkaBrokers, inventory.TopicInventoryChanged, 1024, logger)
	producers := []*kafkax.Producer{pCreated, pStatus, pInventory}
	for _, p := range producers {
		p.Start(ctx)
	}

	lifecycle := &orders.Lifecycle{
		Tx:               db,
		Reader:           db,
		Cache:            &redisx.StatusCache{RDB: rdb, Log: logger},
		Created:          pCreated,
		StatusChanged:    pStatus,
		InventoryChanged: pInventory,
		Log:              logger.Named("orders"),
		ServiceName:      cfg.ServiceName,
	}
	stock := &inventory.Service{
		Tx:          db,
		Reader:      db,
		Producer:    pInventory,
		Log:         logger.Named("inventory"),
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter(logger.Named("http"))
	router.Group(func(r chi.Router) {
		r.Use(httpx.RequireCaller(cfg.AuthRequired, cfg.Development()))
		(&httpx.OrdersHandler{
			Lifecycle:   lifecycle,
			Idempotency: &redisx.Idempotency{RDB: rdb},
			Log:         logger,
			Dev:         cfg.Development(),
		}).Register(r)
		(&httpx.InventoryHandler{
			Service:   stock,
			Alerts:    &redisx.AlertStore{RDB: rdb},
			Threshold: cfg.LowStockThreshold,
			Log:       logger,
			Dev:       cfg.Development(),
		}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		// handlers may still be running; producers drop what they publish after Close
		logger.Warn("http shutdown", zap.Error(err))
	}
	for _, p := range producers {
		p.Close() // flush queued events
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}
