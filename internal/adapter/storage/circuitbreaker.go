package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"storage-visual/internal/domain"
	"storage-visual/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreaker wraps a KVStore with circuit breaker protection. When the
// backend fails repeatedly the circuit opens and calls fail fast with
// domain.ErrCircuitOpen. A missing key is a normal answer and never counts
// as a failure.
type CircuitBreaker struct {
	inner   domain.KVStore
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

// NewCircuitBreaker wraps inner. Zero-valued settings fall back to defaults.
func NewCircuitBreaker(inner domain.KVStore, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "kv:" + inner.Name(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
	})

	return &CircuitBreaker{inner: inner, breaker: cb, logger: logger}
}

func (c *CircuitBreaker) Get(ctx context.Context, key string) (string, error) {
	v, err := c.breaker.Execute(func() (string, error) {
		return c.inner.Get(ctx, key)
	})
	return v, c.wrap("Get", err)
}

func (c *CircuitBreaker) Set(ctx context.Context, key, value string) error {
	_, err := c.breaker.Execute(func() (string, error) {
		return "", c.inner.Set(ctx, key, value)
	})
	return c.wrap("Set", err)
}

func (c *CircuitBreaker) Delete(ctx context.Context, key string) error {
	_, err := c.breaker.Execute(func() (string, error) {
		return "", c.inner.Delete(ctx, key)
	})
	return c.wrap("Delete", err)
}

func (c *CircuitBreaker) Name() string { return c.inner.Name() }

// State returns the current circuit breaker state for monitoring.
func (c *CircuitBreaker) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (c *CircuitBreaker) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Close closes the inner store when it supports closing.
func (c *CircuitBreaker) Close() error { return closeStore(c.inner) }

func (c *CircuitBreaker) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewDomainError("CircuitBreaker."+op, domain.ErrCircuitOpen,
			fmt.Sprintf("backend %q: %v", c.inner.Name(), err))
	}
	return err
}

var _ domain.KVStore = (*CircuitBreaker)(nil)
