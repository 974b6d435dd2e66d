package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/internal/appconfig"
	"github.com/terrascope/authcore/logging"
	"github.com/terrascope/authcore/store/gormstore"
	"gorm.io/gorm"
)

// runtime holds the backends shared by every command.
type runtime struct {
	log    logging.Logger
	db     *gorm.DB
	store  *gormstore.Store
	redis  *redis.Client
	engine *authcore.Engine
}

func openRuntime(ctx context.Context, cfg *appconfig.ServiceConfig) (*runtime, error) {
	log := cfg.Logger()

	db, err := gormstore.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	store := gormstore.New(db)
	if err := store.Migrate(ctx); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	mailer, err := cfg.Mailer(log)
	if err != nil {
		_ = rdb.Close()
		closeDB(db)
		return nil, fmt.Errorf("mailer: %w", err)
	}

	engine, err := authcore.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithUserStore(store).
		WithMailer(mailer).
		WithLogger(log).
		WithAuditSink(authcore.NewLoggerSink(log.With("component", "audit"))).
		Build()
	if err != nil {
		_ = rdb.Close()
		closeDB(db)
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &runtime{log: log, db: db, store: store, redis: rdb, engine: engine}, nil
}

func (r *runtime) Close() {
	r.engine.Close()
	_ = r.redis.Close()
	closeDB(r.db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
