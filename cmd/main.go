package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"toyadmin/internal/audit"
	"toyadmin/internal/backend"
	"toyadmin/internal/cache"
	"toyadmin/internal/config"
	"toyadmin/internal/db"
	"toyadmin/internal/kafka"
	"toyadmin/internal/logging"
	"toyadmin/internal/notify"
	"toyadmin/internal/outbox"
	"toyadmin/internal/repository"
	"toyadmin/internal/server"
	"toyadmin/internal/service"
)

const (
	auditWorkers     = 2
	auditBatchSize   = 16
	auditBatchWindow = 2 * time.Second
	auditChannelSize = 256

	outboxPollInterval = 3 * time.Second
	outboxBatchLimit   = 50
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.GetSugaredLogger()
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	database, err := db.NewDB(ctx, cfg.DatabaseDSN, cfg.MigrationsDir)
	if err != nil {
		logger.Fatalw("connect db", "error", err)
	}
	defer database.Close()

	taskRepo := repository.NewPostgresTaskRepository(database)

	producer, err := kafka.NewSaramaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.Fatalw("connect kafka", "error", err)
	}
	defer producer.Close()

	pool := audit.NewWorkerPool(
		audit.PoolConfig{
			BatchSize:   auditBatchSize,
			Timeout:     auditBatchWindow,
			ChannelSize: auditChannelSize,
		},
		logger,
		audit.NewDBProcessor(database),
		&audit.LogProcessor{Log: logger},
		audit.NewOutboxProcessor(taskRepo),
	)
	poolCtx, poolCancel := context.WithCancel(context.Background())
	pool.Start(poolCtx, auditWorkers)
	defer pool.Shutdown(poolCancel)

	relay := outbox.NewRelay(taskRepo, producer, cfg.KafkaTopic,
		outboxPollInterval, outboxBatchLimit, logger)
	go relay.Start(ctx)

	client := backend.NewClient(cfg.BackendAddress, cfg.BackendToken, cfg.BackendTimeout)

	orders := cache.NewOrdersCache()
	products := cache.NewProductsCache()
	go orders.StartAutoRefresh(ctx, client, cfg.RefreshInterval)
	go products.StartAutoRefresh(ctx, client, cfg.RefreshInterval)

	svc := service.New(client, orders, products,
		notify.NewZapNotifier(logger), pool, logger)

	srv := server.NewServer(svc, cfg, logger)

	if err := srv.Run(); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}
