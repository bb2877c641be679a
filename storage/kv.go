// Package storage provides the key-value stores the campus data is persisted to.
//
// Every backend stores opaque string values under string keys, the way the
// browser demo used LocalStorage. Callers own the encoding of the values.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"virtual-campus/config"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("storage: key not found")

	// ErrQuotaExceeded is returned by Set when the write would exceed the store quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// KV is a minimal synchronous key-value store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key starting with prefix, sorted ascending.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open builds the KV backend selected by the configuration.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case config.DriverMemory, "":
		return NewMemoryKV(cfg.StorageQuotaBytes), nil
	case config.DriverSQLite, config.DriverPostgres:
		dsn := cfg.DatabaseURL
		if dsn == "" && cfg.StorageDriver == config.DriverSQLite {
			dsn = "campus.db"
		}
		return OpenGormKV(cfg.StorageDriver, dsn)
	case config.DriverRedis:
		return NewRedisKV(ctx, cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
