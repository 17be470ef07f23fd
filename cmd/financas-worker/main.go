package main

import (
	"context"
	"errors"

	"financas/internal/amqp"
	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/cli"
	"financas/internal/log"
	"financas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker requires a message broker", errors.New("AMQP_URL is not set"),
			log.FieldErrorType, log.ErrorTypeConfiguration)
	}

	store, err := backend.OpenStore(cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open store", err, log.FieldErrorType, log.ErrorTypeDatabase)
	}
	defer store.Close()

	exporter, err := backend.NewExporter(context.Background(), cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize exporter", err, log.FieldErrorType, log.ErrorTypeConfiguration)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err, log.FieldErrorType, log.ErrorTypeNetwork)
	}
	defer client.Close()

	exportWorker := worker.NewExportWorker(exporter, store)
	handle := exportWorker.HandleEvent

	// A shared Redis cache is invalidated here too so replicas that missed
	// the write drop their reports.
	if cfg.RedisURL != "" && cfg.ReportCacheTTL > 0 {
		reports, err := cache.NewRedis(context.Background(), cfg.RedisURL, cfg.ReportCacheTTL)
		if err != nil {
			logger.Warn("Redis unavailable, report cache will not be invalidated", log.FieldError, err)
		} else {
			defer reports.Close()
			handle = invalidating(handle, reports, logger)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	if cfg.ResyncOnStart {
		logger.Info("Performing startup resync", log.FieldOperation, log.OpExport)
		if err := exportWorker.Resync(ctx); err != nil {
			// Events still flow; the next resync repairs the mirror.
			logger.Error("Startup resync failed", log.FieldError, err)
		}
	}

	logger.Info("Starting financas-worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"sheets_enabled", cfg.GoogleSheetsEnabled(),
		log.FieldOperation, log.OpStartup)

	if err := client.ConsumeTransactionEvents(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Message consumption failed", err, log.FieldErrorType, log.ErrorTypeNetwork)
	}

	<-done
	logger.Info("Worker shutdown complete")
}

func invalidating(next func(context.Context, *amqp.TransactionEvent) error, reports cache.Reports, logger *log.Logger) func(context.Context, *amqp.TransactionEvent) error {
	return func(ctx context.Context, e *amqp.TransactionEvent) error {
		if err := next(ctx, e); err != nil {
			return err
		}
		if err := reports.Invalidate(ctx); err != nil {
			logger.WarnContext(ctx, "Report cache invalidation failed", log.FieldError, err, log.FieldComponent, log.ComponentCache)
		}
		return nil
	}
}
