// Package geometry computes distances and display metrics over route paths.
package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// EarthRadiusMeters is the mean Earth radius used for all great-circle math.
const EarthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance between a and b in meters.
// s2.LatLng.Distance evaluates the haversine form, so the result is symmetric
// and exactly zero for identical points.
func Haversine(a, b domain.Position) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat(), a.Lon())
	p2 := s2.LatLngFromDegrees(b.Lat(), b.Lon())
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance sums the segment lengths of path in meters.
// Paths with fewer than two positions have zero length.
func Distance(path []domain.Position) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += Haversine(path[i-1], path[i])
	}
	return total
}

// VertexCount returns the number of positions in path.
func VertexCount(path []domain.Position) int {
	return len(path)
}

// RouteDistanceKm returns the route length in kilometers. The server-computed
// distance_km wins when present and finite; otherwise the length is computed
// from a LineString geometry. Other geometry types yield 0.
func RouteDistanceKm(r domain.Route) float64 {
	if d := r.Properties.DistanceKm; d != nil && !math.IsNaN(*d) && !math.IsInf(*d, 0) {
		return *d
	}
	if line, ok := r.Geometry.AsLineString(); ok {
		return Distance(line.Coordinates) / 1000
	}
	return 0
}

// FormatDistanceKm renders meters as kilometers with one decimal, e.g. "12.3 km".
func FormatDistanceKm(meters float64) string {
	km := meters / 1000
	if math.IsNaN(km) || math.IsInf(km, 0) {
		return "0.0 km"
	}
	return fmt.Sprintf("%.1f km", math.Round(km*10)/10)
}

// FormatVertices renders a vertex count as a short label, e.g. "7 pts".
func FormatVertices(count int) string {
	return fmt.Sprintf("%d pts", count)
}
