// Package handler — export.go implements GET /api/routes/{route_id}/export.
// Returns a route's path and markers as a downloadable file.
// Supports content negotiation via ?format=csv (CSV) or default (GPX).
package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/middleware"
)

// Export formats accepted by ?format=.
const (
	FormatGPX = "gpx"
	FormatCSV = "csv"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{"kind", "index", "lon", "lat", "label", "icon_type"}

// ExportRoute implements GET /api/routes/{route_id}/export.
// The route path becomes a GPX track and its markers become waypoints.
// Use ?format=csv to receive one row per vertex and marker instead.
func (s *Server) ExportRoute(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "route_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	params, err := bindExportParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := FormatGPX
	if params.Format != nil {
		format = *params.Format
	}
	if format != FormatGPX && format != FormatCSV {
		writeDetail(w, http.StatusUnprocessableEntity, "format must be gpx or csv")
		return
	}

	route, err := s.backend.GetRoute(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path, ok := route.Geometry.AsLineString()
	if !ok {
		s.writeError(w, r, fmt.Errorf("handler.Server.ExportRoute: route %s has %s geometry", id, route.Geometry.Type))
		return
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case FormatCSV:
		body, err = buildCSV(path, route.Properties.Markers)
		contentType = "text/csv"
	default:
		body, err = buildGPX(route, path)
		contentType = "application/gpx+xml"
	}
	if err != nil {
		s.writeError(w, r, fmt.Errorf("handler.Server.ExportRoute: %w", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="route-%s.%s"`, id, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// buildGPX encodes the route as a GPX 1.1 document with one track segment.
func buildGPX(route domain.Route, path domain.LineString) ([]byte, error) {
	seg := gpx.GPXTrackSegment{}
	for _, p := range path.Coordinates {
		seg.Points = append(seg.Points, gpx.GPXPoint{Point: gpx.Point{Latitude: p.Lat(), Longitude: p.Lon()}})
	}
	doc := gpx.GPX{
		Creator:     "BikeRoutes",
		Name:        route.Title(),
		Description: route.Properties.Description,
		Tracks:      []gpx.GPXTrack{{Name: route.Title(), Segments: []gpx.GPXTrackSegment{seg}}},
	}
	for _, m := range route.Properties.Markers {
		pos, ok := m.Geometry.AsPoint()
		if !ok {
			continue
		}
		doc.Waypoints = append(doc.Waypoints, gpx.GPXPoint{
			Point:       gpx.Point{Latitude: pos.Lat(), Longitude: pos.Lon()},
			Name:        m.Properties.Label,
			Description: m.Properties.Description,
			Symbol:      m.Properties.IconType,
		})
	}
	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}

// buildCSV writes one row per path vertex followed by one row per marker.
func buildCSV(path domain.LineString, markers []domain.Marker) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck — csv.Writer buffers; errors surface from Error() after Flush.
	w.Write(csvHeaders)
	for i, p := range path.Coordinates {
		//nolint:errcheck
		w.Write([]string{"vertex", strconv.Itoa(i), formatCoord(p.Lon()), formatCoord(p.Lat()), "", ""})
	}
	for i, m := range markers {
		pos, ok := m.Geometry.AsPoint()
		if !ok {
			continue
		}
		index := i
		if m.Properties.OrderIndex != nil {
			index = *m.Properties.OrderIndex
		}
		//nolint:errcheck
		w.Write([]string{"marker", strconv.Itoa(index), formatCoord(pos.Lon()), formatCoord(pos.Lat()), m.Properties.Label, m.Properties.IconType})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
