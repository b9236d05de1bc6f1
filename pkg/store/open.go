package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voyageai/pkg/config"
	"voyageai/pkg/db"
)

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (StateStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		d, err := db.Init(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("Store: using sqlite", "path", cfg.Path)
		return NewSQLiteStore(d), nil

	case "postgres":
		pool, err := db.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		slog.Info("Store: using postgres")
		return NewPostgresStore(pool), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("Store: using redis", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
		return NewRedisStore(client, cfg.Redis.Prefix), nil

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		slog.Info("Store: using mongo", "database", cfg.Mongo.Database)
		return NewMongoStore(client, cfg.Mongo.Database), nil

	case "memory":
		slog.Warn("Store: using in-memory store, saved itineraries are lost on exit")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
