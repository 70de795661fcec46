package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/marketd/internal/blob/s3"
	"github.com/alanyoungcy/marketd/internal/bus"
	"github.com/alanyoungcy/marketd/internal/cache/file"
	"github.com/alanyoungcy/marketd/internal/cache/redis"
	"github.com/alanyoungcy/marketd/internal/config"
	"github.com/alanyoungcy/marketd/internal/domain"
	"github.com/alanyoungcy/marketd/internal/market"
	"github.com/alanyoungcy/marketd/internal/notify"
	"github.com/alanyoungcy/marketd/internal/platform/coingecko"
	"github.com/alanyoungcy/marketd/internal/platform/coinpaprika"
	"github.com/alanyoungcy/marketd/internal/state"
	"github.com/alanyoungcy/marketd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application needs.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Cache     domain.SnapshotCache
	Favorites domain.FavoritesStore
	Bus       domain.SignalBus
	History   domain.HistoryStore // nil when history is disabled

	Coordinator *market.Coordinator
	State       *state.Store
	Archiver    *s3blob.Archiver // nil when archival is disabled
	Notifier    *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Snapshot cache and favorites (file or Redis backend) ---
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewSnapshotCache(redisClient)
		deps.Favorites = redis.NewFavoritesStore(redisClient)
		deps.Bus = redis.NewSignalBus(redisClient)

	default: // "file"
		fileCache, err := file.New(cfg.Cache.Dir)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: file cache: %w", err)
		}
		deps.Cache = fileCache
		deps.Favorites = fileCache
		deps.Bus = bus.NewMemory()
	}

	// --- PostgreSQL price history (optional) ---
	if cfg.History.Enabled {
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
		deps.History = postgres.NewHistoryStore(pgClient.Pool())
	}

	// --- S3 archival (optional, requires history for the export path) ---
	if cfg.Archive.Enabled {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.Cache,
			deps.History,
			s3blob.ArchiverConfig{
				Interval: cfg.Archive.Interval(),
				Retain:   cfg.Archive.Retain(),
			},
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Providers, coordinator, state container ---
	gecko := coingecko.NewClient(cfg.Providers.CoinGeckoBaseURL)
	paprika := coinpaprika.NewClient(cfg.Providers.CoinPaprikaBaseURL)

	deps.Coordinator = market.NewCoordinator(
		gecko,
		[]domain.CoinProvider{paprika},
		gecko,
		nil, // no secondary global source is registered today
		deps.Cache,
		deps.History,
		market.Config{
			CoinTimeout:   cfg.Market.CoinTimeout(),
			GlobalTimeout: cfg.Market.GlobalTimeout(),
		},
		logger,
	)

	deps.State = state.NewStore(
		deps.Coordinator,
		deps.Cache,
		deps.Favorites,
		deps.Bus,
		deps.Notifier,
		state.Config{DegradedAlertAfter: cfg.Market.DegradedAlertAfter},
		logger,
	)

	return deps, cleanup, nil
}
