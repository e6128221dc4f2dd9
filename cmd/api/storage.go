package main

import (
	"context"
	"fmt"

	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/internal/handlers"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	levelrepo "github.com/ArowuTest/healthclaims-backend/internal/repositories/leveldb"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/healthclaims-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories/postgres"
	"github.com/ArowuTest/healthclaims-backend/pkg/mongodb"
	"go.uber.org/zap"
)

// storage is the record store selected by STORAGE_DRIVER
type storage struct {
	users  repositories.UserRepository
	claims repositories.ClaimRepository
	ping   handlers.Pinger
	close  func(ctx context.Context)
}

// openStorage connects the configured driver. With prepare set it also
// creates indexes or tables and rewrites legacy document layouts.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger, prepare bool) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		db := client.Database()
		if prepare {
			if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
				_ = client.Disconnect(ctx)
				return nil, fmt.Errorf("ensure indexes: %w", err)
			}
			migrated, err := mongorepo.MigrateLegacyDocuments(ctx, db)
			if err != nil {
				_ = client.Disconnect(ctx)
				return nil, fmt.Errorf("migrate legacy documents: %w", err)
			}
			if migrated > 0 {
				log.Info("rewrote legacy claim documents", zap.Int("claims", migrated))
			}
		}
		log.Info("connected to mongodb", zap.String("database", cfg.MongoDB.Database))
		return &storage{
			users:  mongorepo.NewUserRepository(db),
			claims: mongorepo.NewClaimRepository(db),
			ping:   client.Ping,
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					log.Warn("disconnect mongodb", zap.Error(err))
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		if prepare {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
		log.Info("connected to postgres")
		return &storage{
			users:  postgres.NewUserRepository(pool),
			claims: postgres.NewClaimRepository(pool),
			ping:   pool.Ping,
			close:  func(context.Context) { pool.Close() },
		}, nil

	case config.DriverLevelDB:
		db, err := levelrepo.Open(cfg.LevelDB.Path)
		if err != nil {
			return nil, err
		}
		log.Info("opened leveldb", zap.String("path", cfg.LevelDB.Path))
		return &storage{
			users:  levelrepo.NewUserRepository(db),
			claims: levelrepo.NewClaimRepository(db),
			close: func(context.Context) {
				if err := db.Close(); err != nil {
					log.Warn("close leveldb", zap.Error(err))
				}
			},
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory storage; records are lost on restart")
		return &storage{
			users:  memory.NewUserRepository(),
			claims: memory.NewClaimRepository(),
			close:  func(context.Context) {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func runMigrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Info("memory storage needs no migration")
		return nil
	}
	store, err := openStorage(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	store.close(ctx)
	log.Info("migration complete", zap.String("storage", cfg.Storage.Driver))
	return nil
}
