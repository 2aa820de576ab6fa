package domain

import "strings"

// FeatureType is the GeoJSON type tag carried by every route and marker.
const FeatureType = "Feature"

// Route is a route record exactly as the backend serves it: a GeoJSON Feature
// whose properties carry the route metadata and its markers.
type Route struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Geometry   Geometry        `json:"geometry"`
	Properties RouteProperties `json:"properties"`
}

// RouteProperties holds the metadata of a Route. Timestamps are ISO-8601
// strings and are compared as strings by the local cache.
type RouteProperties struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
	IsPublic    bool     `json:"is_public"`
	Markers     []Marker `json:"markers,omitempty"`
	ShareToken  string   `json:"share_token,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// Title returns the trimmed title, or "Untitled route" when blank.
func (r Route) Title() string {
	if t := strings.TrimSpace(r.Properties.Title); t != "" {
		return t
	}
	return "Untitled route"
}

// RouteDraft is the client-side input for creating or updating a route.
type RouteDraft struct {
	Title       string
	Description string
	Geometry    LineString
	IsPublic    bool
}
