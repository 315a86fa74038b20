package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/precifica/internal/app"
	"github.com/odyssey-erp/precifica/internal/catalog"
	"github.com/odyssey-erp/precifica/internal/history"
	"github.com/odyssey-erp/precifica/internal/markup"
	"github.com/odyssey-erp/precifica/internal/observability"
	"github.com/odyssey-erp/precifica/internal/platform/cache"
	"github.com/odyssey-erp/precifica/internal/platform/db"
	"github.com/odyssey-erp/precifica/internal/quote"
	"github.com/odyssey-erp/precifica/internal/shared"
	"github.com/odyssey-erp/precifica/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	var historyCache *history.Cache
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, historical ratios will not be cached", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		historyCache = history.NewCache(redisClient, cfg.HistoryCacheTTL)
	}

	revenueFloor, err := cfg.RevenueFloor()
	if err != nil {
		logger.Error("history revenue floor", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	resolver := history.NewResolver(
		history.NewLedgerRepository(dbpool),
		historyCache,
		history.Config{LookbackMonths: cfg.HistoryLookbackMonths, RevenueFloor: revenueFloor},
		logger,
		metrics.Pricing(),
	)
	markupService := markup.NewService(markup.NewRepository(dbpool), resolver, logger, metrics.Pricing())
	quoteService := quote.NewService(
		quote.NewRepository(dbpool),
		catalog.NewRepository(dbpool),
		markupService,
		logger,
		metrics.Pricing(),
	)
	quoteService.WithIdempotency(shared.NewIdempotencyStore(dbpool))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Metrics:       metrics,
		Database:      dbpool,
		MarkupHandler: markup.NewHandler(logger, markupService),
		QuoteHandler:  quote.NewHandler(logger, quoteService),
		JobHandler:    jobs.NewHandler(inspector, jobClient, logger),
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
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
