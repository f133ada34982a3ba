// Package storage provides the key/value backends behind the host storage
// service, plus resilience wrappers.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"storage-visual/internal/domain"
	"storage-visual/internal/infra/config"
)

const redisPingTimeout = 5 * time.Second

// Store is a KVStore that owns resources.
type Store interface {
	domain.KVStore
	io.Closer
}

// New builds the configured backend, then layers the circuit breaker and
// rate limiter on top when enabled. The rate limiter is outermost so that
// throttled calls never reach the breaker.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var store Store
	switch cfg.Backend {
	case "memory", "":
		store = nopCloser{NewMemory()}
	case "sqlite":
		s, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = s
	case "redis":
		client := NewRedisClient(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		store = NewRedis(client, cfg.Redis.KeyPrefix)
	default:
		return nil, domain.NewDomainError("storage.New", domain.ErrInvalidInput,
			fmt.Sprintf("unknown backend %q", cfg.Backend))
	}

	if cfg.CircuitBreaker.Enabled {
		store = NewCircuitBreaker(store, cfg.CircuitBreaker, logger)
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		store = NewRateLimited(store, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	logger.Info("storage backend ready",
		"backend", store.Name(),
		"circuit_breaker", cfg.CircuitBreaker.Enabled,
		"rate_limit_rps", cfg.RateLimit.RequestsPerSecond,
	)
	return store, nil
}

type nopCloser struct{ domain.KVStore }

func (nopCloser) Close() error { return nil }

func closeStore(s domain.KVStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
