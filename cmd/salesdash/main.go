package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/backend"
	"salesdash/internal/cache"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	"salesdash/internal/core"
	apphttp "salesdash/internal/http"
	applog "salesdash/internal/log"
	"salesdash/internal/seed"
	"salesdash/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger.Info("Starting salesdash", applog.FieldOperation, applog.OpStartup)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", applog.FieldError, err)
	}

	ctx := context.Background()
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, backendCfg.Type)
	}
	records := result.Store

	queries := services.NewQueryService(records, logger)
	aggregates := services.NewAggregationService(records, logger, services.WithResultCache(cfg.CacheSize, cfg.CacheTTL))

	cacheManager := cache.NewManager()
	if caches := aggregates.Caches(); len(caches) > 0 {
		for _, c := range caches {
			cacheManager.Register(c)
		}
		cacheManager.StartCleanup(cfg.CacheTTL)
	}

	var amqpClient *amqp.Client
	if cfg.SeedOnStartup {
		amqpClient = startSeed(cfg, logger, result, aggregates)
	}

	srv := apphttp.NewServer(":"+cfg.Port, queries, aggregates, apphttp.Options{
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready: func(ctx context.Context) error {
			_, err := records.Count(ctx, core.Filter{})
			return err
		},
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", applog.FieldError, err)
			}
		}
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	})

	logger.Info("Starting HTTP server", "port", cfg.Port, applog.FieldBackend, result.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", applog.FieldError, err, "port", cfg.Port)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// startSeed hands the import to seed-worker when a queue is configured and
// the store is shared, otherwise imports in the background. A failed import
// is logged and the server keeps serving whatever the store holds.
func startSeed(cfg *config.Config, logger *applog.Logger, result *backend.BackendResult, aggregates *services.AggregationService) *amqp.Client {
	seedLogger := logger.WithComponent(applog.ComponentSeed)

	if cfg.AMQPURL != "" {
		if !result.Type.Shared() {
			seedLogger.Warn("AMQP seeding needs a shared backend, importing inline", applog.FieldBackend, result.Type)
		} else {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err == nil {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.SeedTimeout)
				defer cancel()
				msg := amqp.NewSeedRequestMessage(cfg.SeedURL, cfg.SeedForce)
				if err = client.PublishSeedRequest(ctx, msg); err == nil {
					seedLogger.Info("Seed request published", "message_id", msg.ID)
					return client
				}
				_ = client.Close()
			}
			seedLogger.Warn("Failed to queue seed request, importing inline", applog.FieldError, err)
		}
	}

	importer := seed.NewImporter(result.Store, cfg.SeedURL, seed.WithLogger(seedLogger))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.SeedTimeout)
		defer cancel()
		res, err := importer.Import(ctx, seed.Request{Force: cfg.SeedForce})
		if err != nil {
			seedLogger.Error("Error initializing database", applog.FieldError, err, applog.FieldOperation, applog.OpImport)
			return
		}
		if res.Inserted > 0 {
			aggregates.PurgeCache()
		}
	}()
	return nil
}
