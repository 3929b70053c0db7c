package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bakery-orders/internal/config"
	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bakery-orders/internal/kafka"
	"github.com/ariefcatur/go-bakery-orders/internal/logx"
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

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	svc := &inventory.AlertService{
		Sink:      &redisx.AlertStore{RDB: rdb},
		Threshold: cfg.LowStockThreshold,
		Log:       logger.Named("alerts"),
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AlertsGroup, inventory.TopicInventoryChanged, cfg.AlertsWorkers, logger)
	go func() {
		logger.Info("alerts consumer started",
			zap.String("group", cfg.AlertsGroup),
			zap.String("topic", inventory.TopicInventoryChanged),
			zap.Int("workers", cfg.AlertsWorkers))
		if err := cons.Start(ctx, svc.HandleInventoryChanged); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
