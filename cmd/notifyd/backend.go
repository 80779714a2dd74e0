package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinicops/notifysync/pkg/config"
	"github.com/clinicops/notifysync/pkg/httpserver"
	"github.com/clinicops/notifysync/pkg/logger"
	"github.com/clinicops/notifysync/pkg/mongo"
	"github.com/clinicops/notifysync/pkg/notifications"
	"github.com/clinicops/notifysync/pkg/notifystore"
	"github.com/clinicops/notifysync/pkg/pg"
	"github.com/clinicops/notifysync/pkg/redis"
)

type backend struct {
	name    string
	storage notifications.Storage
	checks  []httpserver.Check
	close   func(context.Context)
}

// openBackend loads only the selected backend's configuration, so a memory
// deployment needs no database URLs.
func openBackend(ctx context.Context, kind string, log *slog.Logger) (*backend, error) {
	switch kind {
	case "", "memory":
		return &backend{
			name:    "memory",
			storage: notifications.NewMemoryStorage(),
			close:   func(context.Context) {},
		}, nil

	case "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, notifystore.Migrations, notifystore.MigrationsDir, cfg, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{
			name:    kind,
			storage: notifystore.NewPostgres(pool),
			checks:  []httpserver.Check{{Name: kind, Fn: pg.Healthcheck(pool)}},
			close:   func(context.Context) { pool.Close() },
		}, nil

	case "redis":
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			name:    kind,
			storage: notifystore.NewRedis(client, cfg.KeyPrefix),
			checks:  []httpserver.Check{{Name: kind, Fn: redis.Healthcheck(client)}},
			close: func(ctx context.Context) {
				if err := client.Close(); err != nil {
					log.LogAttrs(ctx, slog.LevelWarn, "Failed to close redis client", logger.Error(err))
				}
			},
		}, nil

	case "mongo":
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		db, err := mongo.ConnectDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := notifystore.NewMongo(db, notifystore.DefaultMongoCollection)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, err
		}
		return &backend{
			name:    kind,
			storage: store,
			checks:  []httpserver.Check{{Name: kind, Fn: mongo.Healthcheck(db.Client())}},
			close: func(ctx context.Context) {
				if err := db.Client().Disconnect(ctx); err != nil {
					log.LogAttrs(ctx, slog.LevelWarn, "Failed to disconnect mongo client", logger.Error(err))
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownStorage, kind)
}
