package storage

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"storage-visual/internal/domain"
)

// RateLimited throttles a KVStore with a token bucket. Calls beyond the
// budget fail immediately with domain.ErrRateLimit rather than waiting.
type RateLimited struct {
	inner   domain.KVStore
	limiter *rate.Limiter
}

// NewRateLimited allows rps calls per second with the given burst. A burst
// below 1 is raised to 1.
func NewRateLimited(inner domain.KVStore, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Get(ctx context.Context, key string) (string, error) {
	if err := r.allow("Get"); err != nil {
		return "", err
	}
	return r.inner.Get(ctx, key)
}

func (r *RateLimited) Set(ctx context.Context, key, value string) error {
	if err := r.allow("Set"); err != nil {
		return err
	}
	return r.inner.Set(ctx, key, value)
}

func (r *RateLimited) Delete(ctx context.Context, key string) error {
	if err := r.allow("Delete"); err != nil {
		return err
	}
	return r.inner.Delete(ctx, key)
}

func (r *RateLimited) Name() string { return r.inner.Name() }

// Close closes the inner store when it supports closing.
func (r *RateLimited) Close() error { return closeStore(r.inner) }

func (r *RateLimited) allow(op string) error {
	if !r.limiter.Allow() {
		return domain.NewDomainError("RateLimited."+op, domain.ErrRateLimit,
			fmt.Sprintf("backend %q exceeded %.2f req/s", r.inner.Name(), float64(r.limiter.Limit())))
	}
	return nil
}

var _ domain.KVStore = (*RateLimited)(nil)
