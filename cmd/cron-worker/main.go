package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/petfinder-app/petfinder-backend/internal/coupons"
	"github.com/petfinder-app/petfinder-backend/internal/cron"
	"github.com/petfinder-app/petfinder-backend/internal/inventory"
	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
	"github.com/petfinder-app/petfinder-backend/pkg/migrate"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.ForApp("cron-worker", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronMetrics(prometheus.DefaultRegisterer, metrics.CronJobOrderExpiry, metrics.CronJobOutboxRetention)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildJobs(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return redis.Key("lock", "cron-worker", env)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)

	inv, err := inventory.NewService(inventory.NewRepository(conn), dbClient)
	if err != nil {
		return nil, err
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:              orders.NewRepository(conn),
		Tx:                dbClient,
		Inventory:         inv,
		Coupons:           coupons.NewRepository(conn),
		Outbox:            outbox.NewService(outboxRepo, logg),
		Logger:            logg,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	})
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger: logg,
		Orders: orderService,
		TTL:    cfg.Checkout.PendingOrderTTL,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Outbox:       outboxRepo,
		Retention:    cfg.Cron.OutboxRetention,
		DeadAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(expiry, retention)
}
