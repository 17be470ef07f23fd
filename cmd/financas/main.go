package main

import (
	"context"
	"errors"
	"net/http"

	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	"financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx := context.Background()
	b, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, log.FieldErrorType, log.ErrorTypeDatabase)
	}

	clock := services.ClockIn(cfg.Location())
	svc := apphttp.Services{
		Categories:   services.NewCategoryService(b.Store, b.Reports),
		Transactions: services.NewTransactionService(b.Store, b.Publisher(), b.Reports, clock),
		Goals:        services.NewGoalService(b.Store, b.Reports, clock),
		Reports:      services.NewReportService(b.Store, b.Reports, clock),
	}

	opts := apphttp.Options{
		Addr:        ":" + cfg.Port,
		APIPrefix:   cfg.APIPrefix,
		CORSOrigins: cfg.CORSAllowedOrigins,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Logger:      logger,
		ReadyChecks: b.Checks(),
	}
	if sr, ok := b.Reports.(cache.StatsReporter); ok {
		opts.CacheStats = sr.Stats
	}
	srv := apphttp.NewServer(svc, opts)

	_, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting financas server",
		"port", cfg.Port,
		"api_prefix", cfg.APIPrefix,
		"driver", cfg.DBDriver,
		"time_zone", cfg.Location().String(),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = b.Close()
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
