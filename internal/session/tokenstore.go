package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/store"
)

// RefreshTokenKey is the store key of the persisted refresh credential.
const RefreshTokenKey = "bikeroutes.refresh_token"

// TokenStore persists the refresh credential. Reads and deletes never fail
// from the caller's point of view; writes do.
type TokenStore struct {
	kv     store.KV
	logger *slog.Logger
}

// NewTokenStore returns a TokenStore over kv. A nil logger uses slog.Default().
func NewTokenStore(kv store.KV, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{kv: kv, logger: logger}
}

// Get returns the stored refresh token, or "" when none is stored or the
// store cannot be read.
func (t *TokenStore) Get(ctx context.Context) string {
	raw, err := t.kv.Get(ctx, RefreshTokenKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			t.logger.WarnContext(ctx, "refresh token unreadable", "error", err)
		}
		return ""
	}
	return string(raw)
}

// Set stores token.
func (t *TokenStore) Set(ctx context.Context, token string) error {
	if err := t.kv.Put(ctx, RefreshTokenKey, []byte(token)); err != nil {
		return fmt.Errorf("session.TokenStore.Set: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (t *TokenStore) Clear(ctx context.Context) {
	if err := t.kv.Delete(ctx, RefreshTokenKey); err != nil {
		t.logger.WarnContext(ctx, "refresh token not cleared", "error", err)
	}
}
