package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/config"
	"financas/internal/sheets"
	gsheet "financas/internal/sheets/google"
	"financas/internal/sheets/memory"
	"financas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the store (running migrations), the report cache and
// the optional AMQP publisher. Only a store failure is fatal.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	b.Store = store
	b.onClose(store.Close)
	b.addCheck("database", store.Ping)

	b.Reports = f.createReportCache(ctx, cfg, b)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			b.AMQP = client
			b.onClose(client.Close)
			b.addCheck("amqp", func(context.Context) error { return client.Ping() })
			f.logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	f.logger.Info("Initialized backend",
		"driver", store.Dialect(),
		"report_cache_ttl", cfg.ReportCacheTTL,
		"amqp_enabled", b.AMQP != nil)

	return b, nil
}

// OpenStore opens the configured relational store.
func OpenStore(cfg *config.Config) (*storage.Repository, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		repo, err := storage.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		return repo, nil
	case config.DriverSQLite, "":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}
}

// createReportCache prefers Redis, falls back to the local LRU, and
// disables caching when the TTL is zero.
func (f *DefaultFactory) createReportCache(ctx context.Context, cfg *config.Config, b *Backend) cache.Reports {
	if cfg.ReportCacheTTL <= 0 {
		f.logger.Info("Report cache disabled")
		return cache.Noop{}
	}

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.ReportCacheTTL)
		if err == nil {
			b.onClose(rc.Close)
			b.addCheck("redis", rc.Ping)
			f.logger.Info("Using Redis report cache")
			return rc
		}
		f.logger.Warn("Redis unavailable, using in-process report cache", "error", err)
	}

	local := cache.NewLocal(cfg.ReportCacheSize, cfg.ReportCacheTTL)
	manager := cache.NewManager()
	manager.Register(local)
	manager.StartCleanup(cleanupInterval(cfg.ReportCacheTTL))
	b.onClose(func() error {
		manager.Stop()
		return nil
	})
	return local
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return time.Minute
	}
	return ttl
}

// NewExporter returns the Google Sheets exporter when credentials are
// configured, otherwise an in-memory sheet.
func NewExporter(ctx context.Context, cfg *config.Config) (sheets.Exporter, error) {
	if !cfg.GoogleSheetsEnabled() {
		slog.Warn("Google Sheets not configured, exporting to in-memory sheet")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return client, nil
}
