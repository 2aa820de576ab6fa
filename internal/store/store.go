// Package store provides durable key-value stores for the client's local
// state: the route cache blob and the refresh credential. Every backend
// implements KV; the rest of the client depends only on that interface.
//
// Put replaces the whole value atomically from the caller's point of view: a
// later Get sees either the previous value or the new one, never a mix.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// KV is a durable store of byte values keyed by string.
type KV interface {
	// Get returns the value for key, or domain.ErrNotFound when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Closer is a KV that holds resources which must be released.
type Closer interface {
	KV
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options configures Open.
type Options struct {
	// Dir is the local data directory used by the file, badger and sqlite backends.
	Dir string
	// DatabaseURL is the Postgres connection string for the postgres backend.
	DatabaseURL string
	// RedisAddr is the host:port of the Redis server for the redis backend.
	RedisAddr string
	// Namespace prefixes keys in shared backends (postgres, redis).
	Namespace string
}

// Open constructs the named backend. The sqlite and postgres backends apply
// their schema migrations before returning.
func Open(ctx context.Context, backend string, opts Options) (Closer, error) {
	switch backend {
	case BackendFile, "":
		return NewFile(opts.Dir)
	case BackendBadger:
		return OpenBadger(filepath.Join(opts.Dir, "badger"))
	case BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(opts.Dir, "bikeroutes.db"))
	case BackendPostgres:
		return OpenPostgres(ctx, opts.DatabaseURL, opts.Namespace)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.Namespace, 5*time.Second)
	default:
		return nil, fmt.Errorf("store.Open: unknown backend %q", backend)
	}
}
