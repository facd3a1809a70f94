package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/config"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/db"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/ingest"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/jsearch"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/notify"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/store"
)

// openStore connects the store selected by STORE_DRIVER and applies its
// schema.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var s store.Store
	quiet := c.LogLevel != "debug"

	switch c.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPostgresPool(ctx, c.DatabaseURL, 0)
		if err != nil {
			return nil, err
		}
		s = store.NewPostgresStore(pool)
	case config.DriverSQLite:
		gdb, err := db.NewSQLite(c.SQLitePath, quiet)
		if err != nil {
			return nil, err
		}
		s = store.NewGormStore(gdb)
	case config.DriverGormPostgres:
		gdb, err := db.NewGormPostgres(c.DatabaseURL, quiet)
		if err != nil {
			return nil, err
		}
		s = store.NewGormStore(gdb)
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("store ready", "driver", c.StoreDriver)
	return s, nil
}

// resolveOwner returns the service account that owns ingested jobs,
// creating it on first start.
func resolveOwner(ctx context.Context, s store.Store, c *config.Config) (*model.User, error) {
	if err := c.RequireServiceAccount(); err != nil {
		return nil, err
	}
	owner, err := s.EnsureUser(ctx, &model.User{
		Email:      c.ServiceAccountEmail,
		ProviderID: c.ServiceAccountProviderID,
		Name:       "Job Sync Service",
	})
	if err != nil {
		return nil, fmt.Errorf("resolve service account: %w", err)
	}
	slog.Info("service account resolved", "user_id", owner.ID)
	return owner, nil
}

// newBroadcaster picks where run events go. With REDIS_URL set they are
// published on the shared channel, which every serve process relays to its
// own clients; otherwise they go to local, which may be nil. The returned
// client is nil when Redis is not configured and must be closed by the
// caller otherwise.
func newBroadcaster(ctx context.Context, c *config.Config, local notify.Broadcaster) (notify.Broadcaster, *redis.Client, error) {
	rdb, err := db.NewRedisClient(ctx, c.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	if rdb == nil {
		return notify.Multi{notify.LogBroadcaster{}, local}, nil, nil
	}
	return notify.Multi{notify.LogBroadcaster{}, notify.NewRedisPublisher(rdb)}, rdb, nil
}

func newSyncer(c *config.Config, s store.Store, ownerID string, bc notify.Broadcaster) *ingest.Syncer {
	fetcher := jsearch.NewFetcher(jsearch.Options{
		BaseURL: c.JSearchBaseURL,
		APIKey:  c.JSearchAPIKey,
		APIHost: c.JSearchAPIHost,
	})
	if c.JSearchAPIKey == "" {
		slog.Warn("JSEARCH_API_KEY is not set; sync runs will fail at fetch")
	}
	return ingest.NewSyncer(fetcher, ingest.NewMerger(s, ownerID), bc, ingest.WithWorkers(c.SyncWorkers))
}
