// Package domain contains the core data types shared by the BikeRoutes client:
// GeoJSON geometry, server route and marker records, local cache entries, and
// the authenticated session. It has no dependencies on other internal packages.
package domain

import (
	"encoding/json"
	"fmt"
)

// GeoJSON geometry type names used on the wire.
const (
	GeometryLineString = "LineString"
	GeometryPoint      = "Point"
)

// Position is a WGS84 coordinate pair in GeoJSON order: longitude, latitude.
// It is an array, so copying a Position copies its values.
type Position [2]float64

// Lon returns the longitude in degrees.
func (p Position) Lon() float64 { return p[0] }

// Lat returns the latitude in degrees.
func (p Position) Lat() float64 { return p[1] }

// LineString is an ordered path of positions. It doubles as the editing draft:
// ordering defines the path and duplicate positions are allowed.
type LineString struct {
	Type        string     `json:"type"`
	Coordinates []Position `json:"coordinates"`
}

// NewLineString returns a LineString over a copy of coords.
func NewLineString(coords ...Position) LineString {
	out := make([]Position, len(coords))
	copy(out, coords)
	return LineString{Type: GeometryLineString, Coordinates: out}
}

// Clone returns a deep copy. The result never shares coordinate storage with l.
func (l LineString) Clone() LineString {
	return NewLineString(l.Coordinates...)
}

// Len returns the number of vertices.
func (l LineString) Len() int { return len(l.Coordinates) }

// MarshalJSON always emits a LineString type tag and a non-null coordinate array.
func (l LineString) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string     `json:"type"`
		Coordinates []Position `json:"coordinates"`
	}{Type: GeometryLineString, Coordinates: nonNil(l.Coordinates)})
}

// Geometry is a GeoJSON geometry of any supported type. Coordinates are kept
// raw so that routes whose geometry is not a LineString survive a round trip
// through the local cache untouched.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LineStringGeometry wraps l as a generic Geometry.
func LineStringGeometry(l LineString) Geometry {
	raw, _ := json.Marshal(nonNil(l.Coordinates))
	return Geometry{Type: GeometryLineString, Coordinates: raw}
}

// PointGeometry wraps p as a generic Point Geometry.
func PointGeometry(p Position) Geometry {
	raw, _ := json.Marshal(p)
	return Geometry{Type: GeometryPoint, Coordinates: raw}
}

// nonNil makes JSON encoding yield [] rather than null.
func nonNil(coords []Position) []Position {
	if coords == nil {
		return []Position{}
	}
	return coords
}

// AsLineString decodes g as a LineString. ok is false when g has another type
// or its coordinates cannot be decoded.
func (g Geometry) AsLineString() (LineString, bool) {
	if g.Type != GeometryLineString {
		return LineString{}, false
	}
	var coords []Position
	if len(g.Coordinates) > 0 {
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return LineString{}, false
		}
	}
	return NewLineString(coords...), true
}

// AsPoint decodes g as a Point.
func (g Geometry) AsPoint() (Position, bool) {
	if g.Type != GeometryPoint {
		return Position{}, false
	}
	var p Position
	if err := json.Unmarshal(g.Coordinates, &p); err != nil {
		return Position{}, false
	}
	return p, true
}

// Validate reports whether g is a LineString or Point with decodable coordinates.
func (g Geometry) Validate() error {
	switch g.Type {
	case GeometryLineString:
		if _, ok := g.AsLineString(); !ok {
			return fmt.Errorf("%w: malformed LineString coordinates", ErrValidation)
		}
	case GeometryPoint:
		if _, ok := g.AsPoint(); !ok {
			return fmt.Errorf("%w: malformed Point coordinates", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported geometry type %q", ErrValidation, g.Type)
	}
	return nil
}
