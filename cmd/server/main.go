package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"portfolioquotes/internal/cache"
	"portfolioquotes/internal/config"
	"portfolioquotes/internal/httpx"
	"portfolioquotes/internal/logging"
	"portfolioquotes/internal/portfolio"
	"portfolioquotes/internal/pricing"
	"portfolioquotes/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	httpClient := httpx.New(cfg.RequestTimeout())
	svc := pricing.New(
		pricing.BuildChains(cfg.Providers, httpClient),
		cache.New(store, logger),
		pricing.WithLogger(logger),
		pricing.WithMaxConcurrency(cfg.Batch.MaxConcurrency),
	)

	a := &api{
		prices:         svc,
		maxTickers:     cfg.Batch.MaxTickers,
		maxConcurrency: cfg.Batch.MaxConcurrency,
		timeout:        cfg.RequestTimeout(),
		log:            logger,
	}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer db.Close()
		repo := postgres.NewRepository(db)
		a.repo = repo
		a.refresher = &portfolio.Refresher{Repo: repo, Prices: svc, Log: logger}
	} else {
		logger.Warn("DATABASE_URL not set; portfolio refresh disabled")
	}

	// Provider status is informational and does not gate startup.
	go func() {
		vctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		svc.ValidateProviders(vctx)
	}()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("cache", cfg.Cache.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
