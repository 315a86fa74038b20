package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/precifica/internal/app"
	"github.com/odyssey-erp/precifica/internal/history"
	jobmetrics "github.com/odyssey-erp/precifica/internal/jobs"
	"github.com/odyssey-erp/precifica/internal/markup"
	"github.com/odyssey-erp/precifica/internal/platform/cache"
	"github.com/odyssey-erp/precifica/internal/platform/db"
	"github.com/odyssey-erp/precifica/internal/shared"
	"github.com/odyssey-erp/precifica/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	revenueFloor, err := cfg.RevenueFloor()
	if err != nil {
		logger.Error("history revenue floor", slog.Any("error", err))
		os.Exit(1)
	}

	historyCache := history.NewCache(redisClient, cfg.HistoryCacheTTL)
	resolver := history.NewResolver(
		history.NewLedgerRepository(pool),
		historyCache,
		history.Config{LookbackMonths: cfg.HistoryLookbackMonths, RevenueFloor: revenueFloor},
		logger,
		nil,
	)
	markupService := markup.NewService(markup.NewRepository(pool), resolver, logger, nil)
	jobMetrics := jobmetrics.NewMetrics(nil)
	refreshJob := jobs.NewHistoryRefreshJob(markupService, historyCache, logger, jobMetrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), cfg.IdempotencyRetention, logger, jobMetrics)

	refreshTask, err := jobs.NewHistoryRefreshTask(jobs.HistoryRefreshPayload{})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskHistoryRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.HistoryRefreshCron, Task: refreshTask},
			{Spec: cfg.IdempotencyCleanupCron, Task: jobs.NewIdempotencyCleanupTask()},
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
