package history

import (
	"slices"

	"github.com/google/uuid"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// Markers is the ordered list of draft markers placed during an edit session.
// Like History it is a value type: mutating methods return a new Markers.
//
// Removing a marker that already exists on the server records its remote id
// in Removed so the next save can delete it there too.
type Markers struct {
	items   []domain.DraftMarker
	removed []string
}

// NewMarkers returns a Markers holding copies of items.
func NewMarkers(items ...domain.DraftMarker) Markers {
	return Markers{items: slices.Clone(items)}
}

// FromRoute converts the markers of a fetched route into draft markers with
// fresh local ids. Markers whose geometry is not a Point are skipped. A
// missing order index falls back to the marker's position in the list.
func FromRoute(r domain.Route) Markers {
	var out []domain.DraftMarker
	for i, m := range r.Properties.Markers {
		coord, ok := m.Geometry.AsPoint()
		if !ok {
			continue
		}
		icon := m.Properties.IconType
		if icon == "" {
			icon = domain.DefaultIconType
		}
		order := i
		if m.Properties.OrderIndex != nil {
			order = *m.Properties.OrderIndex
		}
		out = append(out, domain.DraftMarker{
			LocalID:     uuid.NewString(),
			RemoteID:    m.ID,
			Coordinate:  coord,
			Label:       m.Properties.Label,
			Description: m.Properties.Description,
			IconType:    icon,
			OrderIndex:  order,
		})
	}
	return Markers{items: out}
}

// Items returns a copy of the markers in placement order.
func (m Markers) Items() []domain.DraftMarker { return slices.Clone(m.items) }

// Removed returns the remote ids of synced markers removed in this session.
func (m Markers) Removed() []string { return slices.Clone(m.removed) }

// Len returns the number of markers.
func (m Markers) Len() int { return len(m.items) }

// Add places a new marker at the end of the list. It gets a fresh local id and
// an order index one past the highest in the list, so it never collides with
// a marker that survived an earlier removal.
func (m Markers) Add(coord domain.Position, label, iconType, description string) (Markers, domain.DraftMarker) {
	if iconType == "" {
		iconType = domain.DefaultIconType
	}
	dm := domain.DraftMarker{
		LocalID:     uuid.NewString(),
		Coordinate:  coord,
		Label:       label,
		Description: description,
		IconType:    iconType,
		OrderIndex:  m.nextOrder(),
	}
	items := append(slices.Clone(m.items), dm)
	return Markers{items: items, removed: slices.Clone(m.removed)}, dm
}

// Update applies fn to the marker with the given local id. The local and
// remote ids cannot be changed by fn. ok is false when no marker matches.
func (m Markers) Update(localID string, fn func(*domain.DraftMarker)) (Markers, bool) {
	i := m.index(localID)
	if i < 0 {
		return m, false
	}
	items := slices.Clone(m.items)
	edited := items[i]
	fn(&edited)
	edited.LocalID, edited.RemoteID = items[i].LocalID, items[i].RemoteID
	items[i] = edited
	return Markers{items: items, removed: slices.Clone(m.removed)}, true
}

// Remove deletes the marker with the given local id. ok is false when no
// marker matches.
func (m Markers) Remove(localID string) (Markers, bool) {
	i := m.index(localID)
	if i < 0 {
		return m, false
	}
	removed := slices.Clone(m.removed)
	if rid := m.items[i].RemoteID; rid != "" {
		removed = append(removed, rid)
	}
	items := slices.Delete(slices.Clone(m.items), i, i+1)
	return Markers{items: items, removed: removed}, true
}

// MarkSynced returns a Markers where the marker with localID carries remoteID.
func (m Markers) MarkSynced(localID, remoteID string) Markers {
	i := m.index(localID)
	if i < 0 {
		return m
	}
	items := slices.Clone(m.items)
	items[i].RemoteID = remoteID
	return Markers{items: items, removed: slices.Clone(m.removed)}
}

// ClearRemoved forgets the pending server deletions, typically after a save.
func (m Markers) ClearRemoved() Markers {
	return Markers{items: slices.Clone(m.items)}
}

func (m Markers) nextOrder() int {
	next := 0
	for _, d := range m.items {
		next = max(next, d.OrderIndex+1)
	}
	return next
}

func (m Markers) index(localID string) int {
	return slices.IndexFunc(m.items, func(d domain.DraftMarker) bool { return d.LocalID == localID })
}

// DropRemoved forgets one pending server deletion once it has been applied.
func (m Markers) DropRemoved(remoteID string) Markers {
	removed := slices.DeleteFunc(slices.Clone(m.removed), func(id string) bool { return id == remoteID })
	return Markers{items: slices.Clone(m.items), removed: removed}
}
