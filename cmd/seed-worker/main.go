package main

import (
	"context"
	"errors"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/backend"
	"salesdash/internal/cli"
	applog "salesdash/internal/log"
	"salesdash/internal/seed"
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger = logger.WithComponent(applog.ComponentSeed)
	logger.Info("Starting seed-worker")

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "AMQP_URL is required for seed-worker")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", applog.FieldError, err)
	}
	if !backendCfg.Type.Shared() {
		cli.Fatal(logger, "seed-worker needs a shared backend", applog.FieldBackend, backendCfg.Type)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, backendCfg.Type)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		_ = result.Close()
		cli.Fatal(logger, "Failed to initialize AMQP client", applog.FieldError, err)
	}

	importer := seed.NewImporter(result.Store, cfg.SeedURL, seed.WithLogger(logger))
	handle := func(ctx context.Context, msg *amqp.SeedRequestMessage) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.SeedTimeout)
		defer cancel()

		res, err := importer.Import(ctx, seed.Request{SourceURL: msg.SourceURL, Force: msg.Force})
		if err != nil {
			return err
		}
		logger.Info("Seed import finished",
			"message_id", msg.ID,
			"inserted", res.Inserted,
			"skipped", res.Skipped,
			applog.FieldDurationHuman, res.Duration.String())
		return nil
	}

	consumeCtx, stopConsuming := context.WithCancel(context.Background())
	consumed := make(chan struct{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		stopConsuming()
		select {
		case <-consumed:
		case <-shutdownCtx.Done():
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	})

	go func() {
		defer close(consumed)
		if err := amqpClient.ConsumeSeedRequests(consumeCtx, handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	logger.Info("Seed worker started", "queue", cfg.AMQPQueue, applog.FieldBackend, backendCfg.Type)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Seed worker stopped")
}
