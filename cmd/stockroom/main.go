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

	"github.com/stockroom-app/stockroom/internal/app"
	"github.com/stockroom-app/stockroom/internal/auth"
	"github.com/stockroom-app/stockroom/internal/ledger"
	"github.com/stockroom-app/stockroom/internal/masterdata/budgets"
	"github.com/stockroom-app/stockroom/internal/masterdata/items"
	"github.com/stockroom-app/stockroom/internal/masterdata/locations"
	"github.com/stockroom-app/stockroom/internal/observability"
	"github.com/stockroom-app/stockroom/internal/platform/cache"
	"github.com/stockroom-app/stockroom/internal/platform/db"
	"github.com/stockroom-app/stockroom/internal/procurement"
	"github.com/stockroom-app/stockroom/internal/requests"
	"github.com/stockroom-app/stockroom/internal/shared"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)

	authService := auth.NewService(auth.NewRepository(pool), auth.NewTokenStore(redisClient, cfg.TokenTTL))
	authHandler := auth.NewHandler(logger, authService)

	viewCache := ledger.NewViewCache(redisClient, cfg.ViewCacheTTL)
	ledgerService := ledger.NewService(ledger.NewRepository(pool), auditLogger, viewCache, metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	procurementService := procurement.NewService(procurement.NewRepository(pool), ledgerService, auditLogger, idempotency)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	requestsService := requests.NewService(requests.NewRepository(pool), ledgerService, auditLogger)
	requestsHandler := requests.NewHandler(logger, requestsService)

	itemsHandler := items.NewHandler(logger, items.NewRepository(pool))
	locationsHandler := locations.NewHandler(logger, locations.NewRepository(pool))
	budgetsHandler := budgets.NewHandler(logger, budgets.NewRepository(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthService:        authService,
		AuthHandler:        authHandler,
		LedgerHandler:      ledgerHandler,
		ProcurementHandler: procurementHandler,
		RequestsHandler:    requestsHandler,
		ItemsHandler:       itemsHandler,
		LocationsHandler:   locationsHandler,
		BudgetsHandler:     budgetsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
