package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mini-erp/telecrm/cmd/telecrm/cli"
	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/app"
	"github.com/mini-erp/telecrm/internal/attendance"
	"github.com/mini-erp/telecrm/internal/auth"
	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/internal/exports"
	"github.com/mini-erp/telecrm/internal/inventory"
	"github.com/mini-erp/telecrm/internal/masterdata/companies"
	"github.com/mini-erp/telecrm/internal/masterdata/products"
	"github.com/mini-erp/telecrm/internal/masterdata/suppliers"
	"github.com/mini-erp/telecrm/internal/masterdata/warehouses"
	"github.com/mini-erp/telecrm/internal/observability"
	"github.com/mini-erp/telecrm/internal/orders"
	"github.com/mini-erp/telecrm/internal/platform/cache"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/procurement"
	"github.com/mini-erp/telecrm/internal/promotions"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/reports"
	"github.com/mini-erp/telecrm/internal/roles"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/tags"
	"github.com/mini-erp/telecrm/internal/users"
	"github.com/mini-erp/telecrm/jobs"
	"github.com/mini-erp/telecrm/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, cfg, os.Args[2:]))
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	c := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = c.Close() }()
	return c.Run(ctx, args, os.Stdout, os.Stderr)
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns, cfg.Timezone)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	rbacService := rbac.NewService(pool)
	if err := rbacService.EnsureCatalogue(ctx); err != nil {
		return fmt.Errorf("ensure permission catalogue: %w", err)
	}
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	sessionManager := shared.NewSessionManager(redisClient, "telecrm_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()
	reportsCache := cache.NewVersioned(redisClient, "reports", cfg.CacheTTL)
	pdfClient := report.NewClient(cfg.GotenbergURL)
	importLimit := app.StrictLimit(20)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(pool), rbacService)
	activitiesHandler := activities.NewHandler(logger, activities.NewService(activities.NewRepository(pool)), rbacMiddleware)

	ordersService := orders.NewService(orders.NewRepository(pool), orders.Options{
		Idempotency: idempotencyStore,
		Reports:     reportsCache,
		Audit:       auditLogger,
		Ownership:   cfg.OwnershipWindow(),
	})
	customersService := customers.NewService(customers.NewRepository(pool), auditLogger, cfg.OwnershipWindow())
	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger,
		inventory.ServiceConfig{ExpiryWarnDays: cfg.LotExpiryWarnDays})
	attendanceService := attendance.NewService(attendance.NewRepository(pool),
		attendance.NewRedisThrottle(redisClient, time.Minute), cfg.Location())

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Metrics:            metrics,
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, app.StrictLimit(10)),
		UsersHandler:       users.NewHandler(logger, users.NewService(users.NewRepository(pool), auditLogger), rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool), auditLogger), rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		CompaniesHandler:   companies.NewHandler(logger, companies.NewService(companies.NewRepository(pool)), rbacMiddleware),
		SuppliersHandler:   suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool)), rbacMiddleware),
		WarehousesHandler:  warehouses.NewHandler(logger, warehouses.NewService(warehouses.NewRepository(pool)), rbacMiddleware),
		ProductsHandler:    products.NewHandler(logger, products.NewService(products.NewRepository(pool)), rbacMiddleware),
		CustomersHandler: customers.NewHandler(logger, customersService, rbacMiddleware, customers.HandlerOptions{
			Timeline:       activitiesHandler,
			Metrics:        metrics,
			ImportLimit:    importLimit,
			ImportMaxBytes: cfg.ImportMaxBytes,
		}),
		ActivitiesHandler: activitiesHandler,
		TagsHandler:       tags.NewHandler(logger, tags.NewService(tags.NewRepository(pool)), rbacMiddleware),
		OrdersHandler: orders.NewHandler(logger, ordersService, rbacMiddleware, orders.HandlerOptions{
			Renderer:       pdfClient,
			Queue:          jobClient,
			Metrics:        metrics,
			ImportLimit:    importLimit,
			ImportMaxBytes: cfg.ImportMaxBytes,
		}),
		PromotionsHandler:  promotions.NewHandler(logger, promotions.NewService(promotions.NewRepository(pool)), rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		ProcurementHandler: procurement.NewHandler(logger, procurement.NewService(procurement.NewRepository(pool), auditLogger), rbacMiddleware),
		AttendanceHandler:  attendance.NewHandler(logger, attendanceService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reports.NewService(reports.NewRepository(pool), reportsCache, ordersService), rbacMiddleware),
		ExportsHandler:     exports.NewHandler(logger, exports.NewService(exports.NewRepository(pool), exports.NewStore(cfg.ExportDir)), rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		PDFHealth:          report.HealthHandler(pdfClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
