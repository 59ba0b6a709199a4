package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/colosseo/arenabook/internal/blob/s3"
	"github.com/colosseo/arenabook/internal/bus"
	"github.com/colosseo/arenabook/internal/cache/redis"
	"github.com/colosseo/arenabook/internal/config"
	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/notify"
	"github.com/colosseo/arenabook/internal/store/memory"
	"github.com/colosseo/arenabook/internal/store/postgres"
)

// Dependencies bundles every external resource the engine runs on. Standalone
// mode fills it with in-memory implementations, serve and reconcile modes with
// Postgres and Redis backed ones.
type Dependencies struct {
	Accounts domain.AccountStore
	Pools    domain.PoolStore
	Bets     domain.BetStore
	Events   domain.EventStore

	Bus       domain.SignalBus
	Locks     domain.LockManager // nil in standalone mode
	Limiter   domain.RateLimiter // nil in standalone mode
	PoolCache domain.PoolCache   // nil in standalone mode

	Archiver *s3blob.Archiver // nil unless S3 is enabled
	Notifier *notify.Notifier // nil unless a sender is configured
}

// needsInfra reports whether the mode requires Postgres and Redis.
func needsInfra(mode string) bool {
	return mode == "serve" || mode == "reconcile"
}

// Wire constructs all dependencies for the configured mode. It returns the
// dependency bundle and a cleanup function that closes every opened resource
// in reverse order. On error, any already-opened resources are closed before
// returning.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if !needsInfra(cfg.Mode) {
		deps.Accounts = memory.NewAccountStore()
		deps.Pools = memory.NewPoolStore()
		deps.Bets = memory.NewBetStore()
		deps.Events = memory.NewEventStore()
		deps.Bus = bus.NewMemory()
		logger.InfoContext(ctx, "wired in-memory stores", slog.String("mode", cfg.Mode))
	} else {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
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
			return fail(fmt.Errorf("app: connect postgres: %w", err))
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("app: run migrations: %w", err))
			}
		}

		deps.Accounts = postgres.NewAccountStore(pg.Pool())
		deps.Pools = postgres.NewPoolStore(pg.Pool())
		deps.Bets = postgres.NewBetStore(pg.Pool())
		deps.Events = postgres.NewEventStore(pg.Pool())

		rdb, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("app: connect redis: %w", err))
		}
		closers = append(closers, func() { _ = rdb.Close() })

		deps.Bus = redis.NewSignalBus(rdb)
		deps.Locks = redis.NewLockManager(rdb)
		deps.Limiter = redis.NewRateLimiter(rdb)
		deps.PoolCache = redis.NewPoolCache(rdb)

		logger.InfoContext(ctx, "wired postgres and redis",
			slog.String("redis_addr", cfg.Redis.Addr),
			slog.Bool("migrations", cfg.Postgres.RunMigrations),
		)
	}

	if cfg.S3.Enabled {
		blob, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("app: connect s3: %w", err))
		}
		writer := s3blob.NewWriter(blob)
		deps.Archiver = s3blob.NewArchiver(writer, deps.Pools, deps.Bets, deps.Events)
		logger.InfoContext(ctx, "wired s3 archiver", slog.String("bucket", cfg.S3.Bucket))
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)
		logger.InfoContext(ctx, "wired notifier", slog.Int("senders", len(senders)))
	}

	return deps, cleanup, nil
}
