package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// Redis is a KV backed by plain Redis string keys. SET replaces a value
// atomically.
type Redis struct {
	client    *redis.Client
	namespace string
}

// NewRedis wraps an existing client. Keys are stored as "<namespace>:<key>".
func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

// OpenRedis connects to addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr, namespace string, timeout time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store.OpenRedis: ping: %w", err)
	}
	return NewRedis(client, namespace), nil
}

// Get returns the value for key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("store.Redis.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store.Redis.Get: %w", err)
	}
	return val, nil
}

// Put sets key to value with no expiry.
func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store.Redis.Put: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("store.Redis.Delete: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(k string) string {
	if r.namespace == "" {
		return "bikeroutes:" + k
	}
	return fmt.Sprintf("bikeroutes:%s:%s", r.namespace, k)
}
