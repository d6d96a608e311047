package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/migrate"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox/registry"
	"github.com/petfinder-app/petfinder-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName
	logg = logger.ForApp(serviceName, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"batch_size":   cfg.Outbox.BatchSize,
		"max_attempts": cfg.Outbox.MaxAttempts,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "outbox publisher stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher drained and stopped")
}

// run owns every connection the publisher opens and closes them all on the
// way out, whatever stopped the loop.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	topics, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer func() { err = multierr.Append(err, psClient.Close()) }()

	publisherFor, stopPublishers := publishersFrom(psClient)
	defer stopPublishers()

	events := outbox.NewRepository(dbClient.DB())
	relay, err := newRelay(cfg.Outbox, relayDeps{
		Logger:       logg,
		DB:           dbClient,
		Broker:       psClient,
		Repository:   events,
		Rows:         func(tx *gorm.DB) outboxRepository { return events.WithTx(tx) },
		Events:       topics,
		PublisherFor: publisherFor,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "publishing outbox events")
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
