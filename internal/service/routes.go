package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/routecache"
)

// Listing is the route list shown to the user.
type Listing struct {
	// Routes are sorted newest first and filtered by the query.
	Routes []domain.CachedRoute
	// Offline is true when the server could not be reached and Routes come
	// from the local cache alone.
	Offline bool
	// Cause is the remote failure behind Offline.
	Cause error
}

// RouteService lists, fetches, and deletes routes with an offline fallback.
type RouteService struct {
	api    RoutesAPI
	auth   Authorizer
	cache  RouteCache
	logger *slog.Logger
}

// NewRouteService constructs a RouteService. A nil logger uses slog.Default().
func NewRouteService(api RoutesAPI, auth Authorizer, cache RouteCache, logger *slog.Logger) *RouteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteService{api: api, auth: auth, cache: cache, logger: logger}
}

// Activate refreshes the route list. The server listing is merged into the
// cache and the merged result returned. If the server call fails for any
// reason, the cached listing is returned with Offline set and no error.
// A failure to save the merged cache is returned alongside the listing.
func (s *RouteService) Activate(ctx context.Context, query string) (Listing, error) {
	cached := s.cache.Load(ctx)

	var remote []domain.Route
	err := s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		var err error
		remote, err = s.api.ListRoutes(ctx, accessToken, domain.NewListParams(query, 1, 50))
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "route list unavailable; showing cache", "error", err)
		return Listing{
			Routes:  routecache.Filter(routecache.Sort(cached), query),
			Offline: true,
			Cause:   err,
		}, nil
	}

	merged, saveErr := s.cache.Merge(ctx, remote)
	listing := Listing{Routes: routecache.Filter(routecache.Sort(merged), query)}
	if saveErr != nil {
		return listing, fmt.Errorf("service.RouteService.Activate: %w", saveErr)
	}
	return listing, nil
}

// Get fetches route id and refreshes its cache entry. When the server call
// fails and the route is cached, the cached copy is returned with offline
// set. A cache write failure is returned with the fetched route.
func (s *RouteService) Get(ctx context.Context, id string) (route domain.Route, offline bool, err error) {
	err = s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		var err error
		route, err = s.api.GetRoute(ctx, accessToken, id)
		return err
	})
	if err != nil {
		for _, e := range s.cache.Load(ctx) {
			if e.Route.ID == id {
				s.logger.WarnContext(ctx, "route unavailable; showing cache", "route_id", id, "error", err)
				return e.Route, true, nil
			}
		}
		return domain.Route{}, false, fmt.Errorf("service.RouteService.Get: %w", err)
	}

	if err := s.cache.Upsert(ctx, route); err != nil {
		return route, false, fmt.Errorf("service.RouteService.Get: %w", err)
	}
	return route, false, nil
}

// Delete deletes route id on the server and removes the local copy. The local
// copy is removed even when the server call fails; the server error is then
// returned.
func (s *RouteService) Delete(ctx context.Context, id string) error {
	remoteErr := s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		return s.api.DeleteRoute(ctx, accessToken, id)
	})
	cacheErr := s.cache.Remove(ctx, id)

	if remoteErr != nil {
		return fmt.Errorf("service.RouteService.Delete: %w", remoteErr)
	}
	if cacheErr != nil {
		return fmt.Errorf("service.RouteService.Delete: %w", cacheErr)
	}
	return nil
}
