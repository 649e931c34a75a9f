package migrate

import (
	"context"
	"fmt"

	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/logger"
)

// MaybeRunDev applies pending steps automatically when the app is running in
// the dev profile and the auto-migrate flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect := DialectFor(cfg.DB)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": string(dialect)})
	logg.Info(ctx, "running migrations (dev auto-run)")

	runner, err := NewRunner(sqlDB, dialect, Options{
		AllowDataLoss: cfg.FeatureFlags.MigrateAllowDataLoss,
		Logger:        logg,
	})
	if err != nil {
		return err
	}
	if err := runner.Up(ctx); err != nil {
		return err
	}

	logg.Info(ctx, "migrations completed")
	return nil
}
