package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/shopverse/internal/config"
	"github.com/and161185/shopverse/internal/migrate"
	"github.com/and161185/shopverse/internal/storage"
	"github.com/and161185/shopverse/internal/storage/postgres"
)

// OpenStorage builds the configured device storage. The returned close func is never nil.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (storage.Storage, func() error, error) {
	noop := func() error { return nil }

	var (
		inner   storage.Storage
		closeFn = noop
	)
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), noop, nil
	case config.BackendFile, "":
		inner = storage.NewFile(cfg.Dir)
	case config.BackendRedis:
		r, err := storage.NewRedis(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.Namespace)
		if err != nil {
			return nil, noop, err
		}
		inner, closeFn = r, r.Close
	case config.BackendPostgres:
		if err := migrate.Up(ctx, cfg.PostgresDSN, log); err != nil {
			return nil, noop, fmt.Errorf("migrate up: %w", err)
		}
		db, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		inner = postgres.NewStore(db, cfg.Namespace)
		closeFn = func() error { db.Close(); return nil }
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if !cfg.Seal {
		log.Debug("device storage opened", zap.String("backend", cfg.Backend), zap.Bool("sealed", false))
		return inner, closeFn, nil
	}
	key, err := storage.DeviceKey(cfg.Dir, cfg.Passphrase)
	if err != nil {
		_ = closeFn()
		return nil, noop, fmt.Errorf("device key: %w", err)
	}
	sealed, err := storage.NewSealed(inner, key)
	if err != nil {
		_ = closeFn()
		return nil, noop, err
	}
	log.Debug("device storage opened", zap.String("backend", cfg.Backend), zap.Bool("sealed", true))
	return sealed, closeFn, nil
}
