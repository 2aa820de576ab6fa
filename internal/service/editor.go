package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/history"
)

// EditorState is everything the route editor holds between saves. It is a
// value: services return new states and never modify the caller's.
type EditorState struct {
	// RouteID is empty until the route has been created on the server.
	RouteID     string
	Title       string
	Description string
	IsPublic    bool
	History     history.History
	Markers     history.Markers
}

// EditorService opens routes for editing and saves them back.
type EditorService struct {
	api    RoutesAPI
	auth   Authorizer
	cache  RouteCache
	logger *slog.Logger
}

// NewEditorService constructs an EditorService. A nil logger uses slog.Default().
func NewEditorService(api RoutesAPI, auth Authorizer, cache RouteCache, logger *slog.Logger) *EditorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EditorService{api: api, auth: auth, cache: cache, logger: logger}
}

// New returns the state for a route that does not exist yet.
func (s *EditorService) New() EditorState {
	return EditorState{History: history.New(), Markers: history.NewMarkers()}
}

// Open fetches route id and builds an editor state from it. A geometry that
// is not a LineString opens as an empty draft.
func (s *EditorService) Open(ctx context.Context, id string) (EditorState, error) {
	var route domain.Route
	err := s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		var err error
		route, err = s.api.GetRoute(ctx, accessToken, id)
		return err
	})
	if err != nil {
		return EditorState{}, fmt.Errorf("service.EditorService.Open: %w", err)
	}
	return stateFromRoute(route), nil
}

// Save writes state to the server: the route itself, then pending marker
// deletions, marker updates, and marker creations. The saved route is then
// re-fetched and cached.
//
// The returned state reflects every step that succeeded, including on error,
// so saving it again does not create the route or its markers twice.
func (s *EditorService) Save(ctx context.Context, state EditorState) (domain.Route, EditorState, error) {
	draft := state.History.Present()
	title := strings.TrimSpace(state.Title)
	if title == "" {
		return domain.Route{}, state, fmt.Errorf("service.EditorService.Save: %w: title is required", domain.ErrValidation)
	}
	if draft.Len() < 2 {
		return domain.Route{}, state, fmt.Errorf("service.EditorService.Save: %w: a route needs at least two points", domain.ErrValidation)
	}

	next := state
	next.Title = title
	routeDraft := domain.RouteDraft{
		Title:       title,
		Description: strings.TrimSpace(state.Description),
		Geometry:    draft,
		IsPublic:    state.IsPublic,
	}

	err := s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		var (
			saved domain.Route
			err   error
		)
		if next.RouteID == "" {
			saved, err = s.api.CreateRoute(ctx, accessToken, routeDraft)
		} else {
			saved, err = s.api.UpdateRoute(ctx, accessToken, next.RouteID, routeDraft)
		}
		if err == nil {
			next.RouteID = saved.ID
		}
		return err
	})
	if err != nil {
		return domain.Route{}, next, fmt.Errorf("service.EditorService.Save: route: %w", err)
	}

	for _, remoteID := range next.Markers.Removed() {
		err := s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
			return s.api.DeleteMarker(ctx, accessToken, next.RouteID, remoteID)
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Route{}, next, fmt.Errorf("service.EditorService.Save: delete marker %s: %w", remoteID, err)
		}
		next.Markers = next.Markers.DropRemoved(remoteID)
	}

	for _, m := range next.Markers.Items() {
		err := s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
			if m.Synced() {
				_, err := s.api.UpdateMarker(ctx, accessToken, next.RouteID, m.RemoteID, m.Draft())
				return err
			}
			created, err := s.api.CreateMarker(ctx, accessToken, next.RouteID, m.Draft())
			if err == nil {
				next.Markers = next.Markers.MarkSynced(m.LocalID, created.ID)
			}
			return err
		})
		if err != nil {
			return domain.Route{}, next, fmt.Errorf("service.EditorService.Save: marker %s: %w", m.LocalID, err)
		}
	}

	var saved domain.Route
	err = s.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		var err error
		saved, err = s.api.GetRoute(ctx, accessToken, next.RouteID)
		return err
	})
	if err != nil {
		return domain.Route{}, next, fmt.Errorf("service.EditorService.Save: reload: %w", err)
	}

	if err := s.cache.Upsert(ctx, saved); err != nil {
		return saved, next, fmt.Errorf("service.EditorService.Save: %w", err)
	}
	s.logger.InfoContext(ctx, "route saved",
		"route_id", saved.ID,
		"vertices", draft.Len(),
		"markers", next.Markers.Len(),
	)
	return saved, next, nil
}

func stateFromRoute(r domain.Route) EditorState {
	line, ok := r.Geometry.AsLineString()
	if !ok {
		line = domain.NewLineString()
	}
	return EditorState{
		RouteID:     r.ID,
		Title:       r.Properties.Title,
		Description: r.Properties.Description,
		IsPublic:    r.Properties.IsPublic,
		History:     history.New(line),
		Markers:     history.FromRoute(r),
	}
}
