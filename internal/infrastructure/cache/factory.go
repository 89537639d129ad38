package cache

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory creates the receipt-key store selected by configuration
type IdempotencyStoreFactory struct {
	cfg           config.IdempotencyConfig
	redisConfig   config.RedisConfig
	databaseStore shared.IdempotencyStore
	logger        *zap.Logger
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithDatabaseStore supplies the store used by the database backend
func WithDatabaseStore(store shared.IdempotencyStore) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.databaseStore = store
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.IdempotencyConfig, redisCfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		cfg:         cfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the configured store. A Redis backend that cannot be
// reached falls back to memory only when FallbackToMemory is set.
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	switch f.cfg.Backend {
	case config.IdempotencyBackendDatabase, "":
		if f.databaseStore == nil {
			return nil, fmt.Errorf("database idempotency backend selected but no database store was supplied")
		}
		f.logger.Info("Using database idempotency store")
		return f.databaseStore, nil

	case config.IdempotencyBackendMemory:
		f.logger.Warn("Using in-memory idempotency store; receipt keys are lost on restart")
		return NewInMemoryIdempotencyStore(), nil

	case config.IdempotencyBackendRedis:
		store, err := NewRedisIdempotencyStore(f.redisConfig, f.cfg.KeyPrefix)
		if err == nil {
			f.logger.Info("Using Redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
			return store, nil
		}
		if !f.cfg.FallbackToMemory {
			return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Receipts may be counted twice across instances.",
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(), nil
	}
	return nil, fmt.Errorf("unknown idempotency backend %q", f.cfg.Backend)
}
