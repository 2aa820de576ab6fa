// Package session owns the signed-in user's credentials.
//
// A Manager holds the in-memory session, persists only the refresh token, and
// wraps authenticated calls so that a rejected access token is refreshed and
// the call retried exactly once. Concurrent callers that need a refresh at the
// same time share a single exchange with the server.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// Authenticator is the subset of the API client the manager needs.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (domain.Session, error)
	Login(ctx context.Context, email, password string) (domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Session, error)
	Me(ctx context.Context, accessToken string) (domain.User, error)
}

// State describes where the manager is in its lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "anonymous"
	}
}

// Manager is safe for concurrent use.
type Manager struct {
	auth   Authenticator
	tokens *TokenStore
	logger *slog.Logger

	group singleflight.Group

	// commitMu orders refresh-token writes with the session swaps they
	// belong to.
	commitMu sync.Mutex

	mu         sync.Mutex
	session    *domain.Session
	generation uint64 // bumped on every session swap
	refreshing bool
	listeners  map[int]func(*domain.Session)
	nextID     int
}

// NewManager returns an anonymous Manager. Call Load to restore a persisted
// session. A nil logger uses slog.Default().
func NewManager(auth Authenticator, tokens *TokenStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		auth:      auth,
		tokens:    tokens,
		logger:    logger,
		listeners: make(map[int]func(*domain.Session)),
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.refreshing:
		return Refreshing
	case m.session != nil:
		return Authenticated
	default:
		return Anonymous
	}
}

// Current returns a copy of the session, or nil when signed out.
func (m *Manager) Current() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.session)
}

// OnChange registers fn to be called after every sign-in, refresh, and
// sign-out with a copy of the new session (nil when signed out). The
// returned function unregisters fn.
func (m *Manager) OnChange(fn func(*domain.Session)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Load restores the session from the stored refresh token. It returns nil
// without error when no token is stored or the stored token no longer works;
// in the latter case the stored token is cleared. The exchange is shared with
// any refresh already in flight.
func (m *Manager) Load(ctx context.Context) (*domain.Session, error) {
	rt := m.tokens.Get(ctx)
	if rt == "" {
		return nil, nil
	}

	gen := m.currentGeneration()
	s, err := m.refresh(ctx, nil)
	if err == nil {
		gen = m.currentGeneration()
		var user domain.User
		user, err = m.auth.Me(ctx, s.AccessToken)
		s.User = user
	}
	if err != nil {
		m.logger.WarnContext(ctx, "stored session could not be restored", "error", err)
		_, _ = m.commitIf(gen, nil, func() error {
			m.tokens.Clear(ctx)
			return nil
		})
		return nil, nil
	}

	if ok, _ := m.commitIf(gen, &s, nil); !ok {
		// Signed in or out while the user was being fetched.
		return m.Current(), nil
	}
	m.logger.InfoContext(ctx, "session restored", "user_id", s.User.ID)
	return copySession(&s), nil
}

// SignIn logs in with email and password.
func (m *Manager) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	s, err := m.auth.Login(ctx, normalizeEmail(email), password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session.Manager.SignIn: %w", err)
	}
	if err := m.establish(ctx, s); err != nil {
		return domain.Session{}, fmt.Errorf("session.Manager.SignIn: %w", err)
	}
	return s, nil
}

// Register creates an account and signs in to it.
func (m *Manager) Register(ctx context.Context, email, password string) (domain.Session, error) {
	s, err := m.auth.Register(ctx, normalizeEmail(email), password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session.Manager.Register: %w", err)
	}
	if err := m.establish(ctx, s); err != nil {
		return domain.Session{}, fmt.Errorf("session.Manager.Register: %w", err)
	}
	return s, nil
}

// SignOut forgets the session and the stored refresh token.
func (m *Manager) SignOut(ctx context.Context) {
	_ = m.commit(nil, func() error {
		m.tokens.Clear(ctx)
		return nil
	})
}

// Do runs op with a valid access token, refreshing and retrying once when
// op fails with domain.ErrUnauthorized.
func (m *Manager) Do(ctx context.Context, op func(ctx context.Context, accessToken string) error) error {
	_, err := WithAuthRetry(ctx, m, func(ctx context.Context, accessToken string) (struct{}, error) {
		return struct{}{}, op(ctx, accessToken)
	})
	return err
}

// WithAuthRetry runs op with the current access token, refreshing first when
// there is no session. If op fails with domain.ErrUnauthorized the session is
// refreshed and op runs a second and last time. Any other error from op is
// returned unchanged.
func WithAuthRetry[T any](ctx context.Context, m *Manager, op func(ctx context.Context, accessToken string) (T, error)) (T, error) {
	var zero T

	s := m.Current()
	if s == nil {
		refreshed, err := m.refresh(ctx, func(cur *domain.Session) bool { return cur != nil })
		if err != nil {
			return zero, err
		}
		s = &refreshed
	}

	v, err := op(ctx, s.AccessToken)
	if err == nil || !errors.Is(err, domain.ErrUnauthorized) {
		return v, err
	}

	// Reuse a session another caller refreshed after op was issued.
	stale := s.AccessToken
	refreshed, rerr := m.refresh(ctx, func(cur *domain.Session) bool {
		return cur != nil && cur.AccessToken != stale
	})
	if rerr != nil {
		return zero, rerr
	}
	return op(ctx, refreshed.AccessToken)
}

// Refresh forces a token exchange, sharing it with any exchange already in
// flight.
func (m *Manager) Refresh(ctx context.Context) (domain.Session, error) {
	return m.refresh(ctx, nil)
}

// refresh returns a fresh session. If usable reports true for the current
// session, no exchange is made and that session is returned.
func (m *Manager) refresh(ctx context.Context, usable func(*domain.Session) bool) (domain.Session, error) {
	if usable != nil {
		if cur := m.Current(); usable(cur) {
			return *cur, nil
		}
	}

	// The exchange rotates the refresh token server-side; it must complete
	// even if the caller that started it goes away.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan("refresh", func() (any, error) {
		// A flight that finished after the check above has already
		// installed its session.
		if usable != nil {
			if cur := m.Current(); usable(cur) {
				return *cur, nil
			}
		}
		return m.exchange(shared)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.Session{}, res.Err
		}
		return res.Val.(domain.Session), nil
	case <-ctx.Done():
		return domain.Session{}, ctx.Err()
	}
}

// exchange performs one refresh round trip. It runs at most once at a time.
// A sign-in or sign-out that lands while the round trip is in flight wins:
// the exchanged tokens are then discarded.
func (m *Manager) exchange(ctx context.Context) (domain.Session, error) {
	m.mu.Lock()
	gen := m.generation
	rt := ""
	if m.session != nil {
		rt = m.session.RefreshToken
	}
	m.refreshing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
	}()

	if rt == "" {
		rt = m.tokens.Get(ctx)
	}
	if rt == "" {
		return domain.Session{}, fmt.Errorf("session.Manager.Refresh: %w", domain.ErrUnauthenticated)
	}

	s, err := m.auth.Refresh(ctx, rt)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			cleared, _ := m.commitIf(gen, nil, func() error {
				m.tokens.Clear(ctx)
				return nil
			})
			if cleared {
				m.logger.WarnContext(ctx, "refresh token rejected; signing out", "error", err)
			}
		}
		return domain.Session{}, fmt.Errorf("session.Manager.Refresh: %w", err)
	}
	if s.User.ID == "" {
		if cur := m.Current(); cur != nil {
			s.User = cur.User
		}
	}

	ok, _ := m.commitIf(gen, &s, func() error {
		if err := m.tokens.Set(ctx, s.RefreshToken); err != nil {
			m.logger.ErrorContext(ctx, "rotated refresh token not persisted", "error", err)
		}
		return nil
	})
	if !ok {
		m.logger.DebugContext(ctx, "session changed during refresh; result discarded")
		if cur := m.Current(); cur != nil {
			return *cur, nil
		}
		return domain.Session{}, fmt.Errorf("session.Manager.Refresh: signed out during refresh: %w", domain.ErrUnauthenticated)
	}
	m.logger.DebugContext(ctx, "session refreshed", "user_id", s.User.ID)
	return s, nil
}

// establish persists the refresh token of a new session and installs it.
func (m *Manager) establish(ctx context.Context, s domain.Session) error {
	err := m.commit(&s, func() error {
		return m.tokens.Set(ctx, s.RefreshToken)
	})
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "signed in", "user_id", s.User.ID)
	return nil
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// commit runs persist and, when it succeeds, installs s.
func (m *Manager) commit(s *domain.Session, persist func() error) error {
	_, err := m.swap(nil, s, persist)
	return err
}

// commitIf is commit that does nothing and reports false unless the session
// generation still equals gen.
func (m *Manager) commitIf(gen uint64, s *domain.Session, persist func() error) (bool, error) {
	return m.swap(&gen, s, persist)
}

// swap installs s and notifies listeners outside both locks.
func (m *Manager) swap(gen *uint64, s *domain.Session, persist func() error) (bool, error) {
	m.commitMu.Lock()
	if gen != nil && m.currentGeneration() != *gen {
		m.commitMu.Unlock()
		return false, nil
	}
	if persist != nil {
		if err := persist(); err != nil {
			m.commitMu.Unlock()
			return false, err
		}
	}

	m.mu.Lock()
	m.session = copySession(s)
	m.generation++
	fns := make([]func(*domain.Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	m.commitMu.Unlock()

	for _, fn := range fns {
		fn(copySession(s))
	}
	return true, nil
}

func copySession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
