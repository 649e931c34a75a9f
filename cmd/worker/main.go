package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/deepstorefront/storefront/internal/orders"
	"github.com/deepstorefront/storefront/internal/tasks"
	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/env"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/mail"
	"github.com/deepstorefront/storefront/pkg/metrics"
	"github.com/deepstorefront/storefront/pkg/redis"
	"github.com/deepstorefront/storefront/pkg/shutdown"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	sender, err := mail.NewSMTPSender(cfg.Email)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail sender", err)
		os.Exit(1)
	}

	confirmations, err := orders.NewConfirmationHandler(orders.NewRepository(dbClient.DB()), sender, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create confirmation handler", err)
		os.Exit(1)
	}

	registry, err := tasks.NewRegistry(confirmations)
	if err != nil {
		logg.Error(context.Background(), "failed to build task registry", err)
		os.Exit(1)
	}

	worker, err := tasks.NewWorker(tasks.WorkerParams{
		Logger:      logg,
		Queue:       brokerClient,
		QueueName:   cfg.Broker.Queue,
		Registry:    registry,
		Metrics:     metrics.NewTaskMetrics(prometheus.DefaultRegisterer),
		Concurrency: cfg.Broker.Concurrency,
		PollTimeout: cfg.Broker.PollTimeout,
		MaxAttempts: cfg.Broker.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create task worker", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"queue":    cfg.Broker.Queue,
		"instance": env.Instance("worker-0"),
	})
	logg.Info(ctx, "starting worker")

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Broker.MetricsPort,
		Handler:           metrics.Handler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
