package service_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GadCoder/BikeRoutes/internal/apiclient"
	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/handler"
	"github.com/GadCoder/BikeRoutes/internal/history"
	"github.com/GadCoder/BikeRoutes/internal/routecache"
	"github.com/GadCoder/BikeRoutes/internal/service"
	"github.com/GadCoder/BikeRoutes/internal/session"
)

// The tests in this file run the services against the development API over
// real HTTP.

type serverClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *serverClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *serverClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stack struct {
	server  *httptest.Server
	clock   *serverClock
	kv      *memKV
	api     *apiclient.Client
	manager *session.Manager
	routes  *service.RouteService
	editor  *service.EditorService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	clock := &serverClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend, err := devbackend.New(devbackend.Options{
		JWTSecret:      "sync-test-secret",
		AccessTokenTTL: 15 * time.Minute,
		BcryptCost:     bcrypt.MinCost,
		Now:            clock.Now,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler.NewServer(backend, nil).Router())
	t.Cleanup(srv.Close)

	kv := newMemKV()
	api := apiclient.NewClient(srv.URL)
	cache := routecache.New(kv)
	manager := session.NewManager(api, session.NewTokenStore(kv, nil), nil)
	return &stack{
		server:  srv,
		clock:   clock,
		kv:      kv,
		api:     api,
		manager: manager,
		routes:  service.NewRouteService(api, manager, cache, nil),
		editor:  service.NewEditorService(api, manager, cache, nil),
	}
}

var (
	plazaDeArmas  = domain.Position{-77.0300, -12.0464}
	parqueKennedy = domain.Position{-77.0282, -12.1211}
	barranco      = domain.Position{-77.0215, -12.1490}
)

func TestSync_CreateListRefreshEditOffline(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	_, err := s.manager.Register(ctx, "rider@example.com", "correct horse")
	require.NoError(t, err)

	// Create a route with two markers.
	state := s.editor.New()
	state.Title = "Centro to Barranco"
	state.IsPublic = true
	state.History = state.History.Push(domain.NewLineString(plazaDeArmas, parqueKennedy, barranco))
	state.Markers, _ = state.Markers.Add(plazaDeArmas, "Start", "", "")
	state.Markers, _ = state.Markers.Add(barranco, "Coffee", "cafe", "Espresso bar")

	saved, state, err := s.editor.Save(ctx, state)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.NotNil(t, saved.Properties.DistanceKm)
	assert.InDelta(t, 11.6, *saved.Properties.DistanceKm, 0.5)
	require.Len(t, saved.Properties.Markers, 2)
	assert.Equal(t, "Start", saved.Properties.Markers[0].Properties.Label)
	assert.Equal(t, domain.DefaultIconType, saved.Properties.Markers[0].Properties.IconType)
	assert.Equal(t, "cafe", saved.Properties.Markers[1].Properties.IconType)
	for _, m := range state.Markers.Items() {
		assert.True(t, m.Synced())
	}

	// The access token expires; the next call refreshes once and succeeds.
	before := s.manager.Current().AccessToken
	s.clock.Advance(20 * time.Minute)

	listing, err := s.routes.Activate(ctx, "barranco")
	require.NoError(t, err)
	assert.False(t, listing.Offline)
	require.Len(t, listing.Routes, 1)
	assert.Equal(t, saved.ID, listing.Routes[0].Route.ID)
	assert.NotEqual(t, before, s.manager.Current().AccessToken)

	// Reopen, drop a marker, move the last vertex, and save again.
	state, err = s.editor.Open(ctx, saved.ID)
	require.NoError(t, err)
	items := state.Markers.Items()
	require.Len(t, items, 2)
	state.Markers, _ = state.Markers.Remove(items[0].LocalID)
	moved := domain.Position{-77.0230, -12.1500}
	state.History = state.History.Push(history.MoveVertex(state.History.Present(), 2, moved))

	saved, _, err = s.editor.Save(ctx, state)
	require.NoError(t, err)
	require.Len(t, saved.Properties.Markers, 1)
	assert.Equal(t, "Coffee", saved.Properties.Markers[0].Properties.Label)
	line, ok := saved.Geometry.AsLineString()
	require.True(t, ok)
	assert.Equal(t, moved, line.Coordinates[2])

	// With the server gone, the cached copy is served.
	s.server.Close()

	listing, err = s.routes.Activate(ctx, "")
	require.NoError(t, err)
	assert.True(t, listing.Offline)
	require.Len(t, listing.Routes, 1)
	assert.Equal(t, saved.ID, listing.Routes[0].Route.ID)

	got, offline, err := s.routes.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, offline)
	assert.Len(t, got.Properties.Markers, 1)
}

func TestSync_SessionRestoredFromStoredToken(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	_, err := s.manager.Register(ctx, "rider@example.com", "correct horse")
	require.NoError(t, err)

	// A second manager over the same store picks the session up.
	other := session.NewManager(s.api, session.NewTokenStore(s.kv, nil), nil)
	restored, err := other.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "rider@example.com", restored.User.Email)
	assert.Equal(t, session.Authenticated, other.State())

	// Sign-out clears the stored token for everyone.
	other.SignOut(ctx)
	restored, err = session.NewManager(s.api, session.NewTokenStore(s.kv, nil), nil).Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestSync_RejectedRefreshSignsOut(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	_, err := s.manager.Register(ctx, "rider@example.com", "correct horse")
	require.NoError(t, err)

	// Past the refresh lifetime both tokens are dead.
	s.clock.Advance(31 * 24 * time.Hour)

	listing, err := s.routes.Activate(ctx, "")
	require.NoError(t, err)
	assert.True(t, listing.Offline)
	assert.ErrorIs(t, listing.Cause, domain.ErrUnauthorized)
	assert.Nil(t, s.manager.Current())
	assert.Equal(t, session.Anonymous, s.manager.State())
}
