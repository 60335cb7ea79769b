package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/delivery"
	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
	"github.com/meridian-erp/meridian-erp/internal/invoicing/receipts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/ledger/regularizations"
	"github.com/meridian-erp/meridian-erp/internal/ledger/subaccounts"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, fiscal year cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	yearCache := fiscalyears.NewCache(redisClient, cfg.FiscalYearCacheTTL)
	yearService := fiscalyears.NewService(fiscalyears.NewRepository(pool), yearCache)
	yearHandler := fiscalyears.NewHandler(logger, yearService)

	subAccountService := subaccounts.NewService(subaccounts.NewRepository(pool))
	subAccountHandler := subaccounts.NewHandler(logger, subAccountService)

	regService := regularizations.NewService(regularizations.NewRepository(pool))
	regHandler := regularizations.NewHandler(logger, regService)

	journalService := journals.NewService(journals.NewRepository(pool), auditLogger)
	journalHandler := journals.NewHandler(logger, journalService).WithMetrics(metrics)

	invoiceRepo := invoices.NewRepository(pool)
	receiptRepo := receipts.NewRepository(pool)

	// Invoice and receipt services reference each other through ports, so
	// construct invoices first and attach the receipt side afterwards.
	invoiceService := invoices.NewService(invoiceRepo, journalService, yearService, regService, nil, auditLogger, logger)
	receiptService := receipts.NewService(receiptRepo, invoiceService, logger)
	invoiceService.WithReceipts(receiptService)

	invoiceHandler := invoices.NewHandler(logger, invoiceService)
	receiptHandler := receipts.NewHandler(logger, receiptService)

	deliveryService := delivery.NewService(delivery.NewRepository(pool))
	deliveryHandler := delivery.NewHandler(logger, deliveryService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		Metrics:               metrics,
		FiscalYearHandler:     yearHandler,
		JournalHandler:        journalHandler,
		SubAccountHandler:     subAccountHandler,
		RegularizationHandler: regHandler,
		InvoiceHandler:        invoiceHandler,
		ReceiptHandler:        receiptHandler,
		DeliveryHandler:       deliveryHandler,
		JobHandler:            jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
