package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/migrations"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a KV backed by the kv table in a Postgres database. Keys are
// scoped by namespace so several clients can share one database.
type Postgres struct {
	db        db
	namespace string
	close     func()
}

// NewPostgres wraps an existing connection, pool, or transaction. The caller
// owns db and must have applied the migrations.
func NewPostgres(db db, namespace string) *Postgres {
	return &Postgres{db: db, namespace: namespace, close: func() {}}
}

// OpenPostgres connects to databaseURL, applies the kv migrations, and returns
// a store that closes the pool on Close.
func OpenPostgres(ctx context.Context, databaseURL, namespace string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("store.OpenPostgres: database URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store.OpenPostgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store.OpenPostgres: ping: %w", err)
	}
	if err := MigratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{db: pool, namespace: namespace, close: pool.Close}, nil
}

// MigratePostgres applies the kv schema through a database/sql handle
// borrowed from the pool, since goose needs *sql.DB.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.Postgres())
	if err != nil {
		return fmt.Errorf("store.MigratePostgres: goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("store.MigratePostgres: %w", err)
	}
	return nil
}

// Get reads the value for key in this store's namespace.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `
		SELECT value
		FROM kv
		WHERE namespace = @namespace AND key = @key`

	var value []byte
	err := p.db.QueryRow(ctx, q, pgx.NamedArgs{"namespace": p.namespace, "key": key}).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("store.Postgres.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store.Postgres.Get: %w", err)
	}
	return value, nil
}

// Put upserts the value for key.
func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv (namespace, key, value)
		VALUES (@namespace, @key, @value)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value      = EXCLUDED.value,
		    updated_at = now()`

	args := pgx.NamedArgs{"namespace": p.namespace, "key": key, "value": value}
	if _, err := p.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("store.Postgres.Put: %w", err)
	}
	return nil
}

// Delete removes key from this store's namespace.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv WHERE namespace = @namespace AND key = @key`

	if _, err := p.db.Exec(ctx, q, pgx.NamedArgs{"namespace": p.namespace, "key": key}); err != nil {
		return fmt.Errorf("store.Postgres.Delete: %w", err)
	}
	return nil
}

// Close releases the pool opened by OpenPostgres. It is a no-op for stores
// built with NewPostgres.
func (p *Postgres) Close() error {
	p.close()
	return nil
}
