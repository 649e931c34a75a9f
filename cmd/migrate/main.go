package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/migrate"
)

func main() {
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|to|validate")
	target := flag.Int64("version", 0, "target step version for -cmd=to")
	allowDataLoss := flag.Bool("allow-data-loss", false, "let destructive steps drop tables that still hold rows")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dialect := migrate.DialectFor(cfg.DB)
	opts := migrate.Options{
		AllowDataLoss: *allowDataLoss || cfg.FeatureFlags.MigrateAllowDataLoss,
		Logger:        logg,
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"cmd":     *cmd,
		"dialect": string(dialect),
	})

	// validate does not need a database
	if *cmd == "validate" {
		if err := migrate.Validate(migrate.Steps(dialect, opts)); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	// a failed step exits non-zero and is never retried here
	if err := execute(ctx, logg, dbClient, dialect, opts, *cmd, *target, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
}

// execute runs one migration command and always closes client, so main can
// exit without leaking the pool.
func execute(ctx context.Context, logg *logger.Logger, client *db.Client, dialect migrate.Dialect, opts migrate.Options, cmd string, target int64, out io.Writer) (err error) {
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, dialect, opts)
	if err != nil {
		return fmt.Errorf("migration runner: %w", err)
	}

	logg.Info(ctx, "migrate ready")

	switch cmd {
	case "up":
		return runner.Up(ctx)

	case "down":
		return runner.Down(ctx)

	case "to":
		if target < 0 {
			return errors.New("-version must not be negative")
		}
		return runner.MigrateTo(ctx, target)

	case "version":
		v, err := runner.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)

	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			state := "pending"
			if st.Applied {
				state = "applied"
			}
			fmt.Fprintf(out, "%05d_%-32s %s\n", st.Version, st.Name, state)
		}

	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
