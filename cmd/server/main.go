package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rideshare/internal/app"
	"rideshare/internal/capacity"
	"rideshare/internal/config"
	"rideshare/internal/fare"
	"rideshare/internal/handler"
	"rideshare/internal/middleware"
	internalRedis "rideshare/internal/redis"
	"rideshare/internal/repository"
	"rideshare/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	tables, err := config.LoadTables(cfg.Engine.TablesFile)
	if err != nil {
		logger.Fatal("failed to load fare tables", zap.Error(err))
	}

	// Lives until shutdown; bounds broker reconnects.
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	storage, err := app.NewStorage(ctx, cfg, tables, nrApp, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	notifier, err := app.NewNotifier(rootCtx, cfg, redisClient, logger)
	if err != nil {
		logger.Fatal("failed to initialize notifier", zap.Error(err))
	}
	defer notifier.Close()

	server := wireServer(cfg, tables, storage, redisClient, notifier, nrApp, logger)

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Engine.StoreBackend), zap.String("notifier", cfg.Engine.NotifierBackend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	cfg *config.Config,
	tables *config.Tables,
	storage *app.Storage,
	redisClient *redis.Client,
	notifier service.Notifier,
	nrApp *newrelic.Application,
	logger *zap.Logger,
) *http.Server {
	// Redis-backed caches are optional.
	var (
		rideCache     internalRedis.RideCacheInterface
		responseStore middleware.ResponseStore
		requestLocks  middleware.RequestLocker
		vehicles      repository.VehicleRepository = storage.Vehicles
	)
	if redisClient != nil {
		cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Engine.CacheTTL)
		rideCache = cacheStore
		vehicles = internalRedis.NewCachedVehicleRepository(storage.Vehicles, cacheStore, logger)
		responseStore = internalRedis.NewResponseStore(redisClient)
		requestLocks = internalRedis.NewLockStore(redisClient)
	}

	rideService := service.NewRideService(service.RideServiceConfig{
		Rides:         storage.Rides,
		Vehicles:      vehicles,
		Ratings:       storage.Ratings,
		Transactor:    storage.Transactor,
		Fares:         fare.NewCalculator(tables.RateTable()),
		Capacity:      capacity.NewPolicy(tables.CapacityTable()),
		SplitPolicy:   fare.Policy(tables.SplitPolicy),
		Cache:         rideCache,
		Notifications: service.NewNotificationService(notifier, logger),
		Retry: service.RetryPolicy{
			MaxAttempts: cfg.Engine.RetryMaxAttempts,
			BaseBackoff: cfg.Engine.RetryBaseBackoff,
			MaxBackoff:  cfg.Engine.RetryMaxBackoff,
		},
		Currency:  cfg.Engine.Currency,
		ListLimit: cfg.Engine.ListLimit,
		Logger:    logger,
	})

	router := app.NewRouter(app.RouterDeps{
		RideHandler:    handler.NewRideHandler(rideService),
		PaymentHandler: handler.NewPaymentHandler(rideService),
		RatingHandler:  handler.NewRatingHandler(rideService),
		ResponseStore:  responseStore,
		RequestLocks:   requestLocks,
		NewRelicApp:    nrApp,
		JWTSecret:      cfg.Auth.JWTSecret,
		Logger:         logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
