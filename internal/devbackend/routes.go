package devbackend

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang/geo/s2"
	"github.com/google/uuid"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/geometry"
)

type route struct {
	id          string
	userID      string
	title       string
	description string
	path        []domain.Position
	distanceKm  float64
	isPublic    bool
	shareToken  string
	createdAt   time.Time
	updatedAt   time.Time
	markers     []*marker
}

// RouteInput is the create-route request body. A client-supplied
// distance_km is ignored; the server always computes it.
type RouteInput struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Geometry    domain.Geometry `json:"geometry"`
	IsPublic    bool            `json:"is_public"`
}

// RoutePatch is the update-route request body. Nil fields are left unchanged.
type RoutePatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Geometry    *domain.Geometry `json:"geometry"`
	IsPublic    *bool            `json:"is_public"`
}

// Sort columns accepted by ListRoutes.
const (
	SortCreatedAt  = "created_at"
	SortUpdatedAt  = "updated_at"
	SortDistanceKm = "distance_km"
)

// ListQuery is the route listing query.
type ListQuery struct {
	domain.ListParams
	// BBox is "minLng,minLat,maxLng,maxLat". Empty means no spatial filter.
	BBox string
}

// DefaultListQuery returns the server-side listing defaults: first page of
// 20, most recently updated first.
func DefaultListQuery() ListQuery {
	return ListQuery{ListParams: domain.ListParams{Page: 1, PageSize: 20, Sort: SortUpdatedAt, Order: "desc"}}
}

// ListRoutes returns the public routes plus the caller's own, filtered,
// sorted, and paginated. callerID is empty for anonymous requests. Share
// tokens are included only on the caller's routes.
func (b *Backend) ListRoutes(_ context.Context, callerID string, q ListQuery) ([]domain.Route, error) {
	if q.Page < 1 {
		return nil, fmt.Errorf("devbackend.Backend.ListRoutes: %w", reject(domain.ErrValidation, "page must be >= 1"))
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		return nil, fmt.Errorf("devbackend.Backend.ListRoutes: %w", reject(domain.ErrValidation, "page_size must be between 1 and 100"))
	}
	if !slices.Contains([]string{SortCreatedAt, SortUpdatedAt, SortDistanceKm}, q.Sort) {
		return nil, fmt.Errorf("devbackend.Backend.ListRoutes: %w", reject(domain.ErrValidation, "sort must be created_at, updated_at, or distance_km"))
	}
	if q.Order != "asc" && q.Order != "desc" {
		return nil, fmt.Errorf("devbackend.Backend.ListRoutes: %w", reject(domain.ErrValidation, "order must be asc or desc"))
	}
	var box *s2.Rect
	if q.BBox != "" {
		r, err := parseBBox(q.BBox)
		if err != nil {
			return nil, fmt.Errorf("devbackend.Backend.ListRoutes: %w", err)
		}
		box = &r
	}
	needle := strings.ToLower(q.Query)

	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []*route
	for _, r := range b.routes {
		if !r.visibleTo(callerID) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.title), needle) {
			continue
		}
		if box != nil && !intersects(r.path, *box) {
			continue
		}
		matched = append(matched, r)
	}

	slices.SortFunc(matched, func(x, y *route) int {
		var c int
		switch q.Sort {
		case SortCreatedAt:
			c = x.createdAt.Compare(y.createdAt)
		case SortUpdatedAt:
			c = x.updatedAt.Compare(y.updatedAt)
		case SortDistanceKm:
			c = cmp.Compare(x.distanceKm, y.distanceKm)
		}
		if q.Order == "desc" {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(x.id, y.id)
	})

	start := min(q.Offset(), len(matched))
	end := min(start+q.PageSize, len(matched))
	out := make([]domain.Route, 0, end-start)
	for _, r := range matched[start:end] {
		out = append(out, r.feature(r.userID == callerID))
	}
	return out, nil
}

// SharedRoute returns a public route by its share token. Share tokens are
// never echoed on this path.
func (b *Backend) SharedRoute(_ context.Context, token string) (domain.Route, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.routes {
		if r.isPublic && r.shareToken != "" && r.shareToken == token {
			return r.feature(false), nil
		}
	}
	return domain.Route{}, fmt.Errorf("devbackend.Backend.SharedRoute: %w", reject(domain.ErrNotFound, "Route not found"))
}

// GetRoute returns a route visible to the caller.
func (b *Backend) GetRoute(_ context.Context, callerID, id string) (domain.Route, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := b.routes[id]
	if r == nil {
		return domain.Route{}, fmt.Errorf("devbackend.Backend.GetRoute: %w", reject(domain.ErrNotFound, "Route not found"))
	}
	if !r.visibleTo(callerID) {
		return domain.Route{}, fmt.Errorf("devbackend.Backend.GetRoute: %w", reject(domain.ErrForbidden, "Forbidden"))
	}
	return r.feature(r.userID == callerID), nil
}

// CreateRoute stores a new route owned by callerID. Public routes get a
// share token.
func (b *Backend) CreateRoute(ctx context.Context, callerID string, in RouteInput) (domain.Route, error) {
	if err := validateTitle(in.Title); err != nil {
		return domain.Route{}, fmt.Errorf("devbackend.Backend.CreateRoute: %w", err)
	}
	path, err := lineFromGeometry(in.Geometry)
	if err != nil {
		return domain.Route{}, fmt.Errorf("devbackend.Backend.CreateRoute: %w", err)
	}

	now := b.timestamp()
	r := &route{
		id:         uuid.NewString(),
		userID:     callerID,
		title:      in.Title,
		path:       path,
		distanceKm: geometry.Distance(path) / 1000,
		isPublic:   in.IsPublic,
		createdAt:  now,
		updatedAt:  now,
	}
	if in.Description != nil {
		r.description = *in.Description
	}
	if r.isPublic {
		if r.shareToken, err = newShareToken(); err != nil {
			return domain.Route{}, fmt.Errorf("devbackend.Backend.CreateRoute: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[r.id] = r
	b.logger.DebugContext(ctx, "route created", "route_id", r.id, "user_id", callerID)
	return r.feature(true), nil
}

// UpdateRoute applies a patch to a route owned by callerID. A new geometry
// recomputes distance_km.
func (b *Backend) UpdateRoute(_ context.Context, callerID, id string, p RoutePatch) (domain.Route, error) {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return domain.Route{}, fmt.Errorf("devbackend.Backend.UpdateRoute: %w", err)
		}
	}
	var path []domain.Position
	if p.Geometry != nil {
		var err error
		if path, err = lineFromGeometry(*p.Geometry); err != nil {
			return domain.Route{}, fmt.Errorf("devbackend.Backend.UpdateRoute: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.owned(callerID, id)
	if err != nil {
		return domain.Route{}, fmt.Errorf("devbackend.Backend.UpdateRoute: %w", err)
	}
	if p.Title != nil {
		r.title = *p.Title
	}
	if p.Description != nil {
		r.description = *p.Description
	}
	if p.IsPublic != nil {
		r.isPublic = *p.IsPublic
		if r.isPublic && r.shareToken == "" {
			if r.shareToken, err = newShareToken(); err != nil {
				return domain.Route{}, fmt.Errorf("devbackend.Backend.UpdateRoute: %w", err)
			}
		}
	}
	if path != nil {
		r.path = path
		r.distanceKm = geometry.Distance(path) / 1000
	}
	r.updatedAt = b.timestamp()
	return r.feature(true), nil
}

// DeleteRoute removes a route owned by callerID together with its markers.
func (b *Backend) DeleteRoute(_ context.Context, callerID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.owned(callerID, id); err != nil {
		return fmt.Errorf("devbackend.Backend.DeleteRoute: %w", err)
	}
	delete(b.routes, id)
	return nil
}

// owned returns the route id if callerID owns it. Callers hold b.mu.
func (b *Backend) owned(callerID, id string) (*route, error) {
	r := b.routes[id]
	if r == nil {
		return nil, reject(domain.ErrNotFound, "Route not found")
	}
	if callerID == "" || r.userID != callerID {
		return nil, reject(domain.ErrForbidden, "Forbidden")
	}
	return r, nil
}

func (r *route) visibleTo(callerID string) bool {
	return r.isPublic || (callerID != "" && r.userID == callerID)
}

func (r *route) feature(withShareToken bool) domain.Route {
	dist := r.distanceKm
	markers := make([]domain.Marker, 0, len(r.markers))
	for _, m := range r.sortedMarkers() {
		markers = append(markers, m.feature())
	}
	out := domain.Route{
		ID:       r.id,
		Type:     domain.FeatureType,
		Geometry: domain.LineStringGeometry(domain.NewLineString(r.path...)),
		Properties: domain.RouteProperties{
			Title:       r.title,
			Description: r.description,
			DistanceKm:  &dist,
			IsPublic:    r.isPublic,
			Markers:     markers,
			CreatedAt:   r.createdAt.Format(timeLayout),
			UpdatedAt:   r.updatedAt.Format(timeLayout),
		},
	}
	if withShareToken {
		out.Properties.ShareToken = r.shareToken
	}
	return out
}

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n < 1 || n > 255 {
		return reject(domain.ErrValidation, "title must be 1 to 255 characters")
	}
	return nil
}

// lineFromGeometry accepts a LineString of at least two [lng, lat] pairs.
func lineFromGeometry(g domain.Geometry) ([]domain.Position, error) {
	if g.Type != domain.GeometryLineString {
		return nil, reject(ErrMalformed, "geometry must be a LineString")
	}
	var raw [][]float64
	if err := json.Unmarshal(g.Coordinates, &raw); err != nil {
		return nil, reject(ErrMalformed, "LineString coordinates must be a list of [lng, lat] positions")
	}
	if len(raw) < 2 {
		return nil, reject(ErrMalformed, "LineString must have at least 2 positions")
	}
	path := make([]domain.Position, len(raw))
	for i, c := range raw {
		if len(c) != 2 {
			return nil, reject(ErrMalformed, "each LineString position must have exactly 2 numbers")
		}
		path[i] = domain.Position{c[0], c[1]}
	}
	return path, nil
}

// pointFromGeometry accepts a Point with exactly one [lng, lat] pair.
func pointFromGeometry(g domain.Geometry) (domain.Position, error) {
	if g.Type != domain.GeometryPoint {
		return domain.Position{}, reject(ErrMalformed, "geometry must be a Point")
	}
	var c []float64
	if err := json.Unmarshal(g.Coordinates, &c); err != nil || len(c) != 2 {
		return domain.Position{}, reject(ErrMalformed, "Point coordinates must be [lng, lat]")
	}
	return domain.Position{c[0], c[1]}, nil
}

// parseBBox parses "minLng,minLat,maxLng,maxLat".
func parseBBox(s string) (s2.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return s2.Rect{}, reject(ErrMalformed, "bbox must be minLng,minLat,maxLng,maxLat")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return s2.Rect{}, reject(ErrMalformed, "bbox must be minLng,minLat,maxLng,maxLat")
		}
		v[i] = f
	}
	minLng, minLat, maxLng, maxLat := v[0], v[1], v[2], v[3]
	if minLng >= maxLng || minLat >= maxLat {
		return s2.Rect{}, reject(ErrMalformed, "bbox min must be < max")
	}
	return s2.RectFromLatLng(s2.LatLngFromDegrees(minLat, minLng)).
		AddPoint(s2.LatLngFromDegrees(maxLat, maxLng)), nil
}

// intersects reports whether any segment of path overlaps box. Each segment
// is tested by its lat/lng bounding rectangle.
func intersects(path []domain.Position, box s2.Rect) bool {
	for i := range path {
		seg := s2.RectFromLatLng(s2.LatLngFromDegrees(path[i].Lat(), path[i].Lon()))
		if i > 0 {
			seg = seg.AddPoint(s2.LatLngFromDegrees(path[i-1].Lat(), path[i-1].Lon()))
		}
		if seg.Intersects(box) {
			return true
		}
	}
	return false
}

func newShareToken() (string, error) {
	t, err := randomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return t, nil
}
