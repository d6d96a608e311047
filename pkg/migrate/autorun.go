package migrate

import (
	"context"
	"fmt"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are built from the models
// instead, since the goose files are Postgres SQL.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if client.DB().Dialector.Name() == db.DriverSQLite {
		ctx = logg.WithField(ctx, "env", cfg.App.Env)
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		if err := AutoMigrateModels(client); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates every table from the gorm models.
func AutoMigrateModels(client *db.Client) error {
	return client.DB().AutoMigrate(
		&models.User{},
		&models.Pet{},
		&models.PetVaccination{},
		&models.PetDeworming{},
		&models.ProductCategory{},
		&models.Product{},
		&models.ProductVariant{},
		&models.InventoryMovement{},
		&models.Cart{},
		&models.CartItem{},
		&models.Coupon{},
		&models.Address{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.OutboxEvent{},
		&models.BlogCategory{},
		&models.BlogTag{},
		&models.BlogPost{},
		&models.BlogComment{},
		&models.BlogReaction{},
		&models.BnbSitter{},
		&models.BnbBooking{},
		&models.BnbReview{},
	)
}
