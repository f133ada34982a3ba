package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-visual/internal/domain"
)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	err    error
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) Ping(context.Context) error { return f.err }

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisContract(t *testing.T) {
	client := newFakeRedis()
	r := NewRedis(client, "visual:")
	exerciseKVStore(t, r)
	assert.Equal(t, "redis", r.Name())
}

func TestRedisKeyPrefix(t *testing.T) {
	client := newFakeRedis()
	r := NewRedis(client, "visual:")

	require.NoError(t, r.Set(context.Background(), "k", "v"))
	assert.Equal(t, "v", client.data["visual:k"])
	_, raw := client.data["k"]
	assert.False(t, raw)
}

func TestRedisBackendError(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("connection refused")
	r := NewRedis(client, "")

	_, err := r.Get(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.CodeRedisStorage, domain.ErrorCodeOf(err))

	assert.ErrorIs(t, r.Set(context.Background(), "k", "v"), domain.ErrStorage)
	assert.ErrorIs(t, r.Delete(context.Background(), "k"), domain.ErrStorage)

	require.NoError(t, r.Close())
	assert.True(t, client.closed)
}
