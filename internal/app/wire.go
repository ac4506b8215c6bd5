package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/quantship/contractd/internal/blob/s3"
	"github.com/quantship/contractd/internal/config"
	"github.com/quantship/contractd/internal/domain"
	"github.com/quantship/contractd/internal/registry"
	"github.com/quantship/contractd/internal/service"
	"github.com/quantship/contractd/internal/store/postgres"
	"github.com/quantship/contractd/internal/store/redis"
)

// Dependencies bundles everything the running application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store    domain.SnapshotStore
	Registry *registry.Registry

	Contracts *service.ContractService
	Archive   *service.ArchiveService
}

// Wire builds the durable store for the configured backend, the registry on
// top of it, the optional archive pipeline, and the contract service. The
// returned cleanup function releases connections in reverse order.
func Wire(ctx context.Context, cfg *config.Config, hub service.Broadcaster, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	switch cfg.Storage.Backend {
	case "postgres":
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

		deps.Store = postgres.NewSnapshotStore(pgClient.Pool())

	case "redis":
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

		deps.Store = redis.NewSnapshotStore(redisClient)

	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unsupported storage backend %q", cfg.Storage.Backend)
	}

	deps.Registry = registry.New(deps.Store, logger, registry.Options{
		StoreTimeout: time.Duration(cfg.Storage.TimeoutMs) * time.Millisecond,
	})

	// --- S3 archive (optional) ---
	var archiver domain.SnapshotArchiver
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		a := s3blob.NewArchiver(s3Client)
		archiver = a
		deps.Archive = service.NewArchiveService(deps.Store, a, logger)
	}

	deps.Contracts = service.NewContractService(deps.Registry, archiver, hub, nil, logger)

	return deps, cleanup, nil
}
