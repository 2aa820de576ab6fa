package devbackend

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

type marker struct {
	id          string
	pos         domain.Position
	label       string
	description string
	iconType    string
	orderIndex  int
	seq         int
}

// MarkerInput is the create-marker request body.
type MarkerInput struct {
	Geometry    domain.Geometry `json:"geometry"`
	Label       *string         `json:"label"`
	Description *string         `json:"description"`
	IconType    *string         `json:"icon_type"`
	OrderIndex  int             `json:"order_index"`
}

// MarkerPatch is the update-marker request body. Nil fields are left unchanged.
type MarkerPatch struct {
	Geometry    *domain.Geometry `json:"geometry"`
	Label       *string          `json:"label"`
	Description *string          `json:"description"`
	IconType    *string          `json:"icon_type"`
	OrderIndex  *int             `json:"order_index"`
}

// ListMarkers returns the markers of a route visible to the caller, ordered
// by order_index then creation.
func (b *Backend) ListMarkers(_ context.Context, callerID, routeID string) ([]domain.Marker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := b.routes[routeID]
	if r == nil {
		return nil, fmt.Errorf("devbackend.Backend.ListMarkers: %w", reject(domain.ErrNotFound, "Route not found"))
	}
	if !r.visibleTo(callerID) {
		return nil, fmt.Errorf("devbackend.Backend.ListMarkers: %w", reject(domain.ErrForbidden, "Forbidden"))
	}
	out := make([]domain.Marker, 0, len(r.markers))
	for _, m := range r.sortedMarkers() {
		out = append(out, m.feature())
	}
	return out, nil
}

// CreateMarker adds a marker to a route owned by callerID. order_index must
// be unique within the route.
func (b *Backend) CreateMarker(_ context.Context, callerID, routeID string, in MarkerInput) (domain.Marker, error) {
	pos, err := pointFromGeometry(in.Geometry)
	if err != nil {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.CreateMarker: %w", err)
	}
	m := &marker{id: uuid.NewString(), pos: pos, iconType: domain.DefaultIconType, orderIndex: in.OrderIndex}
	if in.Label != nil {
		m.label = *in.Label
	}
	if in.Description != nil {
		m.description = *in.Description
	}
	if in.IconType != nil && *in.IconType != "" {
		m.iconType = *in.IconType
	}
	if err := m.validate(); err != nil {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.CreateMarker: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.owned(callerID, routeID)
	if err != nil {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.CreateMarker: %w", err)
	}
	if r.orderTaken(m.orderIndex, "") {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.CreateMarker: %w", reject(domain.ErrConflict, "Marker order_index conflict"))
	}
	m.seq = b.nextSeq()
	r.markers = append(r.markers, m)
	return m.feature(), nil
}

// UpdateMarker applies a patch to a marker of a route owned by callerID.
func (b *Backend) UpdateMarker(_ context.Context, callerID, routeID, markerID string, p MarkerPatch) (domain.Marker, error) {
	var pos *domain.Position
	if p.Geometry != nil {
		v, err := pointFromGeometry(*p.Geometry)
		if err != nil {
			return domain.Marker{}, fmt.Errorf("devbackend.Backend.UpdateMarker: %w", err)
		}
		pos = &v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.owned(callerID, routeID)
	if err != nil {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.UpdateMarker: %w", err)
	}
	i := r.markerIndex(markerID)
	if i < 0 {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.UpdateMarker: %w", reject(domain.ErrNotFound, "Marker not found"))
	}

	next := *r.markers[i]
	if pos != nil {
		next.pos = *pos
	}
	if p.Label != nil {
		next.label = *p.Label
	}
	if p.Description != nil {
		next.description = *p.Description
	}
	if p.IconType != nil {
		next.iconType = *p.IconType
	}
	if p.OrderIndex != nil {
		next.orderIndex = *p.OrderIndex
	}
	if err := next.validate(); err != nil {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.UpdateMarker: %w", err)
	}
	if r.orderTaken(next.orderIndex, markerID) {
		return domain.Marker{}, fmt.Errorf("devbackend.Backend.UpdateMarker: %w", reject(domain.ErrConflict, "Marker order_index conflict"))
	}
	*r.markers[i] = next
	return next.feature(), nil
}

// DeleteMarker removes a marker from a route owned by callerID.
func (b *Backend) DeleteMarker(_ context.Context, callerID, routeID, markerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.owned(callerID, routeID)
	if err != nil {
		return fmt.Errorf("devbackend.Backend.DeleteMarker: %w", err)
	}
	i := r.markerIndex(markerID)
	if i < 0 {
		return fmt.Errorf("devbackend.Backend.DeleteMarker: %w", reject(domain.ErrNotFound, "Marker not found"))
	}
	r.markers = slices.Delete(r.markers, i, i+1)
	return nil
}

func (m *marker) validate() error {
	if utf8.RuneCountInString(m.label) > 100 {
		return reject(domain.ErrValidation, "label must be at most 100 characters")
	}
	if n := utf8.RuneCountInString(m.iconType); n < 1 || n > 50 {
		return reject(domain.ErrValidation, "icon_type must be 1 to 50 characters")
	}
	return nil
}

func (m *marker) feature() domain.Marker {
	order := m.orderIndex
	return domain.Marker{
		ID:       m.id,
		Type:     domain.FeatureType,
		Geometry: domain.PointGeometry(m.pos),
		Properties: domain.MarkerProperties{
			Label:       m.label,
			Description: m.description,
			IconType:    m.iconType,
			OrderIndex:  &order,
		},
	}
}

func (r *route) sortedMarkers() []*marker {
	out := slices.Clone(r.markers)
	slices.SortFunc(out, func(x, y *marker) int {
		if c := cmp.Compare(x.orderIndex, y.orderIndex); c != 0 {
			return c
		}
		return cmp.Compare(x.seq, y.seq)
	})
	return out
}

func (r *route) markerIndex(id string) int {
	return slices.IndexFunc(r.markers, func(m *marker) bool { return m.id == id })
}

func (r *route) orderTaken(order int, exceptID string) bool {
	return slices.ContainsFunc(r.markers, func(m *marker) bool {
		return m.id != exceptID && m.orderIndex == order
	})
}
