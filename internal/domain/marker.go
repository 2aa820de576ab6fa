package domain

// DefaultIconType is the icon tag the backend assigns when none is given.
const DefaultIconType = "default"

// Marker is a point of interest attached to a route, as served by the backend.
type Marker struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Geometry   Geometry         `json:"geometry"`
	Properties MarkerProperties `json:"properties"`
}

// MarkerProperties holds the editable fields of a Marker.
type MarkerProperties struct {
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	IconType    string `json:"icon_type"`
	OrderIndex  *int   `json:"order_index,omitempty"`
}

// DraftMarker is the local editing record for a marker. RemoteID is empty
// until the marker has been created on the server.
type DraftMarker struct {
	LocalID     string
	RemoteID    string
	Coordinate  Position
	Label       string
	Description string
	IconType    string
	OrderIndex  int
}

// Synced reports whether the marker already exists on the server.
func (m DraftMarker) Synced() bool { return m.RemoteID != "" }

// MarkerDraft is the client-side input for creating or updating a marker.
type MarkerDraft struct {
	Coordinate  Position
	Label       string
	Description string
	IconType    string
	OrderIndex  int
}

// Draft converts the editing record into create/update input.
func (m DraftMarker) Draft() MarkerDraft {
	return MarkerDraft{
		Coordinate:  m.Coordinate,
		Label:       m.Label,
		Description: m.Description,
		IconType:    m.IconType,
		OrderIndex:  m.OrderIndex,
	}
}
