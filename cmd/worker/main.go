package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mini-erp/telecrm/internal/app"
	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/internal/exports"
	"github.com/mini-erp/telecrm/internal/inventory"
	jobmetrics "github.com/mini-erp/telecrm/internal/jobs"
	"github.com/mini-erp/telecrm/internal/orders"
	"github.com/mini-erp/telecrm/internal/platform/cache"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns, cfg.Timezone)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := jobmetrics.NewMetrics(nil)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger,
		inventory.ServiceConfig{ExpiryWarnDays: cfg.LotExpiryWarnDays})
	customersService := customers.NewService(customers.NewRepository(pool), auditLogger, cfg.OwnershipWindow())
	ordersService := orders.NewService(orders.NewRepository(pool), orders.Options{
		Reports:   cache.NewVersioned(redisClient, "reports", cfg.CacheTTL),
		Audit:     auditLogger,
		Ownership: cfg.OwnershipWindow(),
	})
	exportService := exports.NewService(exports.NewRepository(pool), exports.NewStore(cfg.ExportDir))

	maintenance := &jobs.MaintenanceJobs{
		Lots:        inventoryService,
		Customers:   customersService,
		Idempotency: shared.NewIdempotencyStore(pool),
		Logger:      logger,
		Metrics:     metrics,
	}
	exportJob := jobs.NewOrderExportJob(ordersService, exportService, logger, metrics)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(24 * time.Hour)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := append(maintenance.Handlers(), jobs.TaskHandler{Type: jobs.TaskOrderExport, Handler: exportJob.Handle})
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		Logger:    logger,
		Location:  cfg.Location(),
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: "10 0 * * *", Task: jobs.NewLotsExpireTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "20 0 * * *", Task: jobs.NewOwnershipSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "@hourly", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
