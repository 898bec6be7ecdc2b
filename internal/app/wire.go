package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/colehagen/esportsbot/internal/blob/s3"
	"github.com/colehagen/esportsbot/internal/cache/redis"
	"github.com/colehagen/esportsbot/internal/config"
	"github.com/colehagen/esportsbot/internal/domain"
	"github.com/colehagen/esportsbot/internal/notify"
	"github.com/colehagen/esportsbot/internal/store/postgres"
)

// Dependencies bundles the external-service clients the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	DecisionStore domain.DecisionStore
	ArchiveStore  domain.MatchArchiveStore

	// Caches and messaging
	QuoteCache domain.QuoteCache
	SignalBus  domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Raw clients, kept for health checks.
	Redis    *redis.Client
	Postgres *postgres.Client
}

// needsPostgres reports whether the mode requires the audit database.
func needsPostgres(mode string) bool {
	switch mode {
	case "trade", "monitor", "server", "full":
		return true
	default:
		return false
	}
}

// needsS3 reports whether the mode archives retired matches to blob storage.
func needsS3(mode string) bool {
	switch mode {
	case "trade", "full":
		return true
	default:
		return false
	}
}

// Wire constructs the concrete dependency implementations for the configured
// mode and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.DecisionStore = postgres.NewDecisionStore(pool)
		deps.ArchiveStore = postgres.NewMatchArchiveStore(pool)
		deps.Postgres = pgClient
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.QuoteCache = redis.NewQuoteCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Redis = redisClient

	// --- S3 ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		if deps.DecisionStore != nil {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.DecisionStore)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
