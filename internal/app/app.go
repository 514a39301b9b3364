// Package app builds the backends selected by configuration and shares them
// between the binaries.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/config"
	"github.com/dharsanguruparan/PrintDrop/internal/database"
	"github.com/dharsanguruparan/PrintDrop/internal/repository"
	"github.com/dharsanguruparan/PrintDrop/internal/s3storage"
	"github.com/dharsanguruparan/PrintDrop/internal/session"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

// Backends holds the order repository and file store chosen for this
// process.
type Backends struct {
	Orders  repository.OrderRepository
	Files   storage.FileStore
	closers []func()
}

// Open connects the configured backends: PostgreSQL or a JSON file for
// orders, MinIO or disk for documents.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backends, error) {
	b := &Backends{}
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		if err := database.EnsureSchema(ctx, pool); err != nil {
			b.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		b.Orders = repository.NewPostgresRepository(pool)
		log.Info("orders backend", zap.String("kind", "postgres"))
	} else {
		repo, err := repository.NewJSONFileRepository(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open order file: %w", err)
		}
		b.Orders = repo
		log.Info("orders backend", zap.String("kind", "json"), zap.String("path", repo.Path()))
	}

	if cfg.S3Endpoint != "" {
		store, err := s3storage.New(cfg)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		b.Files = store
		log.Info("file backend", zap.String("kind", "s3"), zap.String("bucket", cfg.S3Bucket))
	} else {
		store, err := storage.NewDiskStore(filepath.Join(cfg.DataDir, "uploads"))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open upload dir: %w", err)
		}
		b.Files = store
		log.Info("file backend", zap.String("kind", "disk"))
	}
	return b, nil
}

// Close releases backend connections.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// RedisOpt returns the asynq connection options for cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// SessionStore returns a Redis backed store when Redis is configured and an
// in-memory one otherwise. The returned func closes any client it opened.
func SessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return session.NewRedisStore(client), func() { client.Close() }, nil
}
