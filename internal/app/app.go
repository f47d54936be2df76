package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/api"
	"github.com/bgtwallet/bgtwallet/internal/api/handler"
	"github.com/bgtwallet/bgtwallet/internal/api/middleware"
	"github.com/bgtwallet/bgtwallet/internal/catalog"
	"github.com/bgtwallet/bgtwallet/internal/config"
	"github.com/bgtwallet/bgtwallet/internal/ledger"
	"github.com/bgtwallet/bgtwallet/internal/notify"
	"github.com/bgtwallet/bgtwallet/internal/observability"
	"github.com/bgtwallet/bgtwallet/internal/policy"
	"github.com/bgtwallet/bgtwallet/internal/service"
	"github.com/bgtwallet/bgtwallet/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the ledger, workers, and HTTP server, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := []handler.ReadinessCheck{}

	var snapshotter ledger.Snapshotter
	if cfg.DatabaseURL != "" {
		pg, err := ledger.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pg.Close()
		snapshotter = pg
		checks = append(checks, handler.ReadinessCheck{Name: "postgres", Check: pg.Ping})
		logger.Info("ledger snapshots backed by postgres")
	} else {
		snapshotter = ledger.NewFileSnapshotter(cfg.SnapshotPath)
		logger.Info("ledger snapshots backed by file", zap.String("path", cfg.SnapshotPath))
	}

	store := ledger.NewStore(snapshotter)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load ledger snapshot: %w", err)
	}

	settings := policy.NewSettingsStore(cfg.SettingsPath)
	if err := settings.Load(); err != nil {
		return fmt.Errorf("load withdrawal settings: %w", err)
	}
	cat := catalog.New(cfg.CatalogPath)
	if err := cat.Load(); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var queue notify.Queue
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		queue = notify.NewRedisQueue(redisClient)
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
		logger.Info("notification queue backed by redis")
	} else {
		queue = notify.NewMemoryQueue()
		logger.Info("notification queue held in memory")
	}

	engine := policy.NewEngine(settings)
	sales := service.NewSaleService(store, cat, settings, queue, cfg.OperatorID).
		WithFinalRejectRefund(cfg.FinalRejectRefund)
	withdrawals := service.NewWithdrawalService(store, engine, settings, queue, cfg.OperatorID)
	referrals := service.NewReferralService(store, queue)
	admin := service.NewAdminService(cfg.OperatorID, sales, store, settings, cat, queue)

	notifWorker := worker.NewNotificationWorker(queue, notify.LogTransport{}, store).
		WithPollInterval(cfg.NotifyPollInterval)
	stopNotif := notifWorker.Run(ctx)

	sweepWorker := worker.NewStaleSweepWorker(store, queue, cfg.OperatorID).
		WithInterval(cfg.SweepInterval).
		WithMaxAge(cfg.StaleAge)
	stopSweep := sweepWorker.Run(ctx)

	router := api.NewRouter(api.Handlers{
		Auth:       handler.NewAuthHandler(cfg.JWTIssuer, cfg.JWTAudience, cfg.OperatorID),
		Account:    handler.NewAccountHandler(referrals, store, cat),
		Sale:       handler.NewSaleHandler(sales),
		Withdrawal: handler.NewWithdrawalHandler(withdrawals),
		Admin:      handler.NewAdminHandler(admin),
		Health:     handler.NewHealthHandler(checks...),
	}, api.RateLimits{
		PublicRPS: cfg.PublicRateLimitRPS,
		AuthRPS:   cfg.AuthRateLimitRPS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopNotif()
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
