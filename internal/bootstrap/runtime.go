// Package bootstrap opens the infrastructure clients selected by configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	redisadapter "github.com/strogmv/notifyevents/internal/adapter/cache/redis"
	natsadapter "github.com/strogmv/notifyevents/internal/adapter/events/nats"
	"github.com/strogmv/notifyevents/internal/adapter/repository/postgres"
	"github.com/strogmv/notifyevents/internal/adapter/storage/memory"
	"github.com/strogmv/notifyevents/internal/adapter/storage/s3"
	"github.com/strogmv/notifyevents/internal/config"
	"github.com/strogmv/notifyevents/internal/port"
)

// Runtime holds the connected infrastructure. Optional clients are nil when
// their configuration is empty.
type Runtime struct {
	Pool  *pgxpool.Pool
	Redis *goredis.Client
	NATS  *natsadapter.Client
	Files port.FileStorage
}

// NewRuntime connects every client the configuration asks for.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}
	l := slog.Default()

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
	case "memory":
		l.Warn("Using in-memory repositories; data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.RedisAddr != "" {
		rt.Redis = redisadapter.NewClient(cfg.RedisAddr)
		if err := redisadapter.Ping(ctx, rt.Redis); err != nil {
			l.Warn("Redis unavailable; cache and rate limits fall back to local state", slog.Any("error", err))
		}
	}

	if cfg.NATSURL != "" {
		nc, err := natsadapter.NewClient(cfg.NATSURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.NATS = nc
	}

	switch cfg.AttachmentBackend {
	case "s3":
		files, err := s3.New(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Files = files
	case "memory":
		rt.Files = memory.NewStorage()
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown attachment backend %q", cfg.AttachmentBackend)
	}

	return rt, nil
}

// HealthChecks returns one probe per connected dependency.
func (rt *Runtime) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if rt.Pool != nil {
		checks["postgres"] = rt.Pool.Ping
	}
	if rt.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return redisadapter.Ping(ctx, rt.Redis) }
	}
	if rt.NATS != nil {
		checks["nats"] = func(context.Context) error {
			if !rt.NATS.IsConnected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		}
	}
	return checks
}

func (rt *Runtime) Close() {
	if rt.NATS != nil {
		rt.NATS.Close()
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
