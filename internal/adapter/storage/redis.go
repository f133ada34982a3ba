package storage

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"storage-visual/internal/domain"
	"storage-visual/internal/infra/config"
)

// RedisClient is the subset of a Redis client used by the Redis store.
// Get returns an error matching goredis.Nil for a missing key.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// redisAdapter wraps a go-redis client to implement RedisClient.
type redisAdapter struct {
	client *goredis.Client
}

// NewRedisClient connects a go-redis client using cfg.
func NewRedisClient(cfg config.RedisConfig) RedisClient {
	return &redisAdapter{client: goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (r *redisAdapter) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *redisAdapter) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *redisAdapter) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisAdapter) Close() error {
	return r.client.Close()
}

// Redis implements domain.KVStore on a Redis keyspace. Every key is stored
// under prefix so several stores can share one database.
type Redis struct {
	client RedisClient
	prefix string
}

// NewRedis wraps client. The caller keeps ownership of client unless it
// calls Close on the store.
func NewRedis(client RedisClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key)
	if errors.Is(err, goredis.Nil) {
		return "", notFound("Redis.Get", key)
	}
	if err != nil {
		return "", domain.NewSubSystemError("redis", "Redis.Get", domain.ErrStorage, err.Error())
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value); err != nil {
		return domain.NewSubSystemError("redis", "Redis.Set", domain.ErrStorage, err.Error())
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key); err != nil {
		return domain.NewSubSystemError("redis", "Redis.Delete", domain.ErrStorage, err.Error())
	}
	return nil
}

func (r *Redis) Name() string { return "redis" }

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }

var _ domain.KVStore = (*Redis)(nil)
