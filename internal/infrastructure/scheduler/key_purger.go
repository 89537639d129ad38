// Package scheduler runs periodic maintenance jobs in the background.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// ExpiredKeyStore deletes receipt keys whose TTL has passed
type ExpiredKeyStore interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// KeyPurgerConfig holds configuration for the key purger
type KeyPurgerConfig struct {
	Interval time.Duration
	Timeout  time.Duration // per run
}

// KeyPurger periodically removes expired idempotency keys
type KeyPurger struct {
	config KeyPurgerConfig
	store  ExpiredKeyStore
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewKeyPurger creates a new key purger
func NewKeyPurger(config KeyPurgerConfig, store ExpiredKeyStore, logger *zap.Logger) (*KeyPurger, error) {
	if config.Interval <= 0 || store == nil {
		return nil, ErrInvalidConfig
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyPurger{config: config, store: store, logger: logger}, nil
}

// Start starts the purge loop. Calling Start on a running purger is a no-op.
func (p *KeyPurger) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return
	}
	p.isRunning = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Key purger started", zap.Duration("interval", p.config.Interval))
}

// Stop stops the purge loop and waits for an in-flight run, bounded by ctx
func (p *KeyPurger) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.cancel()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Key purger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce purges expired keys a single time
func (p *KeyPurger) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	purged, err := p.store.PurgeExpired(ctx)
	if err != nil {
		p.logger.Warn("Failed to purge expired receipt keys", zap.Error(err))
		return 0, err
	}
	if purged > 0 {
		p.logger.Info("Purged expired receipt keys", zap.Int64("count", purged))
	}
	return purged, nil
}

func (p *KeyPurger) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.RunOnce(ctx)
		}
	}
}
