package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/deepstorefront/storefront/api/controllers"
	"github.com/deepstorefront/storefront/api/routes"
	"github.com/deepstorefront/storefront/internal/carts"
	"github.com/deepstorefront/storefront/internal/catalog"
	"github.com/deepstorefront/storefront/internal/customers"
	"github.com/deepstorefront/storefront/internal/orders"
	"github.com/deepstorefront/storefront/internal/tasks"
	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/env"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/metrics"
	"github.com/deepstorefront/storefront/pkg/migrate"
	"github.com/deepstorefront/storefront/pkg/redis"
	"github.com/deepstorefront/storefront/pkg/shutdown"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

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

	brokerClient, err := redis.NewBroker(context.Background(), cfg.Broker, cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap task broker", err)
		os.Exit(1)
	}
	defer func() {
		if err := brokerClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing task broker", err)
		}
	}()

	publisher, err := tasks.NewPublisher(brokerClient, cfg.Broker.Queue)
	if err != nil {
		logg.Error(context.Background(), "failed to create task publisher", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create services", err)
		os.Exit(1)
	}

	table, err := routes.StorefrontTable(svcs, logg)
	if err != nil {
		logg.Error(context.Background(), "invalid resource table", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.Instance("local"),
		"bindings": table.Len(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config: cfg,
			Logger: logg,
			Table:  table,
			Pingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"broker":   brokerClient,
			},
			Idempotency:    redisClient,
			Metrics:        metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			MetricsHandler: metrics.Handler(nil),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, cache *redis.Client, publisher *tasks.Publisher) (routes.Services, error) {
	conn := dbClient.DB()

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), cache, cfg.Cache.TTL, logg)
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := carts.NewService(carts.NewRepository(conn), dbClient, logg)
	if err != nil {
		return routes.Services{}, err
	}
	customerSvc, err := customers.NewService(customers.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, publisher, logg)
	if err != nil {
		return routes.Services{}, err
	}
	return routes.Services{
		Catalog:   catalogSvc,
		Carts:     cartSvc,
		Customers: customerSvc,
		Orders:    orderSvc,
	}, nil
}
