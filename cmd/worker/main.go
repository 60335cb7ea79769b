package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
	"github.com/meridian-erp/meridian-erp/internal/invoicing/receipts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/ledger/regularizations"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
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
	regService := regularizations.NewService(regularizations.NewRepository(pool))
	journalService := journals.NewService(journals.NewRepository(pool), auditLogger)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, journalService, yearService, regService, nil, auditLogger, logger)
	receiptService := receipts.NewService(receipts.NewRepository(pool), invoiceService, logger)

	renumberTask, err := jobs.NewRenumberTask(jobs.RenumberPayload{})
	if err != nil {
		logger.Error("build renumber task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewIntegrityTask(jobs.IntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewReceiptRefreshTask(jobs.ReceiptRefreshPayload{})
	if err != nil {
		logger.Error("build receipt refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerRenumber, Handler: jobs.NewRenumberHandler(logger, yearService, journalService, metrics)},
			{Type: jobs.TaskLedgerIntegrity, Handler: jobs.NewIntegrityHandler(logger, yearService, pool, metrics)},
			{Type: jobs.TaskReceiptRefresh, Handler: jobs.NewReceiptRefreshHandler(logger, invoiceService, receiptService)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RenumberCron, Task: renumberTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
