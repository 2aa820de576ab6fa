package service_test

import (
	"context"
	"sync"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/service"
	"github.com/GadCoder/BikeRoutes/internal/store"
)

// mockAPI is a hand-written test double for service.RoutesAPI.
// Each method is a function field; set only the ones a test needs.
type mockAPI struct {
	listRoutes   func(ctx context.Context, at string, p domain.ListParams) ([]domain.Route, error)
	getRoute     func(ctx context.Context, at, id string) (domain.Route, error)
	createRoute  func(ctx context.Context, at string, d domain.RouteDraft) (domain.Route, error)
	updateRoute  func(ctx context.Context, at, id string, d domain.RouteDraft) (domain.Route, error)
	deleteRoute  func(ctx context.Context, at, id string) error
	createMarker func(ctx context.Context, at, routeID string, d domain.MarkerDraft) (domain.Marker, error)
	updateMarker func(ctx context.Context, at, routeID, markerID string, d domain.MarkerDraft) (domain.Marker, error)
	deleteMarker func(ctx context.Context, at, routeID, markerID string) error
}

func (m *mockAPI) ListRoutes(ctx context.Context, at string, p domain.ListParams) ([]domain.Route, error) {
	return m.listRoutes(ctx, at, p)
}
func (m *mockAPI) GetRoute(ctx context.Context, at, id string) (domain.Route, error) {
	return m.getRoute(ctx, at, id)
}
func (m *mockAPI) CreateRoute(ctx context.Context, at string, d domain.RouteDraft) (domain.Route, error) {
	return m.createRoute(ctx, at, d)
}
func (m *mockAPI) UpdateRoute(ctx context.Context, at, id string, d domain.RouteDraft) (domain.Route, error) {
	return m.updateRoute(ctx, at, id, d)
}
func (m *mockAPI) DeleteRoute(ctx context.Context, at, id string) error {
	return m.deleteRoute(ctx, at, id)
}
func (m *mockAPI) CreateMarker(ctx context.Context, at, routeID string, d domain.MarkerDraft) (domain.Marker, error) {
	return m.createMarker(ctx, at, routeID, d)
}
func (m *mockAPI) UpdateMarker(ctx context.Context, at, routeID, markerID string, d domain.MarkerDraft) (domain.Marker, error) {
	return m.updateMarker(ctx, at, routeID, markerID, d)
}
func (m *mockAPI) DeleteMarker(ctx context.Context, at, routeID, markerID string) error {
	return m.deleteMarker(ctx, at, routeID, markerID)
}

// compile-time check: mockAPI must satisfy service.RoutesAPI.
var _ service.RoutesAPI = (*mockAPI)(nil)

// passAuth hands every op the same token and never retries.
type passAuth struct{ token string }

func (p passAuth) Do(ctx context.Context, op func(ctx context.Context, accessToken string) error) error {
	return op(ctx, p.token)
}

var _ service.Authorizer = passAuth{}

// memKV is an in-memory store.KV whose writes can be made to fail.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}
func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = value
	return nil
}
func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var _ store.KV = (*memKV)(nil)

// ---- fixtures --------------------------------------------------------------

func lineRoute(id, title, updatedAt string) domain.Route {
	return domain.Route{
		ID:   id,
		Type: domain.FeatureType,
		Geometry: domain.LineStringGeometry(domain.NewLineString(
			domain.Position{-77.0428, -12.0464},
			domain.Position{-77.0328, -12.0464},
		)),
		Properties: domain.RouteProperties{Title: title, UpdatedAt: updatedAt},
	}
}

func routeIDs(entries []domain.CachedRoute) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Route.ID
	}
	return out
}
