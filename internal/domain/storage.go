package domain

import "context"

// StorageService is the privilege-gated key/value service exposed by the
// host. Every call may block until the host answers.
type StorageService interface {
	PrivilegeSource
	// Get fails when the key is absent or access is denied.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// KVStore is a plain string key/value backend with no privilege notion.
// Get returns an error matching ErrNotFound for missing keys; Delete of a
// missing key is not an error.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Name() string
}
