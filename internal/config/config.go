// Package config loads and validates configuration from environment variables.
// Load serves the bikeroutes CLI; LoadServer serves the development API.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/GadCoder/BikeRoutes/internal/store"
)

// Client holds the configuration of the bikeroutes client.
type Client struct {
	// APIURL is the backend address; the client appends /api.
	APIURL string `env:"BIKEROUTES_API_URL" envDefault:"http://localhost:8000"`

	// DataDir holds the local stores of the file, badger, and sqlite backends.
	DataDir string `env:"BIKEROUTES_DATA_DIR" envDefault:".bikeroutes"`

	// Store selects the local store backend: file, badger, sqlite, postgres, or redis.
	Store string `env:"BIKEROUTES_STORE" envDefault:"file"`

	// DatabaseURL is the Postgres connection string. Required when Store is postgres.
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisAddr is the host:port of the Redis server used when Store is redis.
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// HTTPTimeout bounds every request to the backend.
	HTTPTimeout time.Duration `env:"BIKEROUTES_HTTP_TIMEOUT" envDefault:"15s"`

	// LogLevel controls the minimum log level: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

// Server holds the configuration of the development API server.
type Server struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8000"`

	// LogLevel controls the minimum log level: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// JWTSecret signs access tokens. Required.
	JWTSecret string `env:"JWT_SECRET"`

	// AccessTokenTTL is the lifetime of an access token.
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	// RefreshTokenTTL is the lifetime of a refresh token.
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// MaxBodyBytes caps request body sizes.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

var backends = []string{
	store.BackendFile,
	store.BackendBadger,
	store.BackendSQLite,
	store.BackendPostgres,
	store.BackendRedis,
}

// Load reads the client configuration. It returns an error naming any
// required variable that is not set or any value that is invalid.
func Load() (Client, error) {
	cfg, err := env.ParseAs[Client]()
	if err != nil {
		return Client{}, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if !slices.Contains(backends, cfg.Store) {
		return Client{}, fmt.Errorf("invalid BIKEROUTES_STORE %q (must be one of %s)", cfg.Store, strings.Join(backends, ", "))
	}

	var missing []string
	if cfg.Store == store.BackendPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return Client{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	if cfg.HTTPTimeout <= 0 {
		return Client{}, fmt.Errorf("invalid BIKEROUTES_HTTP_TIMEOUT %s (must be positive)", cfg.HTTPTimeout)
	}
	return cfg, nil
}

// LoadServer reads the development API configuration. It returns an error
// naming any required variable that is not set.
func LoadServer() (Server, error) {
	cfg, err := env.ParseAs[Server]()
	if err != nil {
		return Server{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return Server{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// trimAll trims each entry and drops empty ones.
func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
