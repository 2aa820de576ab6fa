// Package service coordinates the client's local state with the backend.
// Services combine the route cache, the session manager, and the API client;
// they hold no state of their own beyond those collaborators.
package service

import (
	"context"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/routecache"
)

// RoutesAPI is the subset of the API client the services call. Every method
// takes the bearer access token supplied by the Authorizer.
type RoutesAPI interface {
	ListRoutes(ctx context.Context, accessToken string, p domain.ListParams) ([]domain.Route, error)
	GetRoute(ctx context.Context, accessToken, id string) (domain.Route, error)
	CreateRoute(ctx context.Context, accessToken string, draft domain.RouteDraft) (domain.Route, error)
	UpdateRoute(ctx context.Context, accessToken, id string, draft domain.RouteDraft) (domain.Route, error)
	DeleteRoute(ctx context.Context, accessToken, id string) error
	CreateMarker(ctx context.Context, accessToken, routeID string, draft domain.MarkerDraft) (domain.Marker, error)
	UpdateMarker(ctx context.Context, accessToken, routeID, markerID string, draft domain.MarkerDraft) (domain.Marker, error)
	DeleteMarker(ctx context.Context, accessToken, routeID, markerID string) error
}

// Authorizer runs op with a valid access token, refreshing and retrying once
// on rejection. *session.Manager implements it.
type Authorizer interface {
	Do(ctx context.Context, op func(ctx context.Context, accessToken string) error) error
}

// RouteCache is the local route store. *routecache.Cache implements it.
type RouteCache interface {
	Load(ctx context.Context) []domain.CachedRoute
	Merge(ctx context.Context, remote []domain.Route) ([]domain.CachedRoute, error)
	Upsert(ctx context.Context, route domain.Route, opts ...routecache.UpsertOption) error
	Remove(ctx context.Context, id string) error
}
