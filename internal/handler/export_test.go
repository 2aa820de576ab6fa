package handler_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

func exportBackend(route domain.Route) *mockBackend {
	return &mockBackend{
		getRoute: func(context.Context, string, string) (domain.Route, error) {
			return route, nil
		},
	}
}

func routeWithMarker() domain.Route {
	r := lineRoute(routeID, domain.Position{-77.0428, -12.0464}, domain.Position{-77.0282, -12.1211})
	r.Properties.Description = "Along the coast"
	r.Properties.Markers = []domain.Marker{markerFixture(markerID, 4)}
	return r
}

// ---- GET /api/routes/{route_id}/export (GPX) -------------------------------

func TestExportRoute_DefaultsToGPX(t *testing.T) {
	rec := serve(t, exportBackend(routeWithMarker()), http.MethodGet, "/api/routes/"+routeID+"/export", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gpx+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="route-`+routeID+`.gpx"`, rec.Header().Get("Content-Disposition"))

	doc, err := gpx.ParseBytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Loop", doc.Name)
	assert.Equal(t, "Along the coast", doc.Description)
	require.Len(t, doc.Tracks, 1)
	require.Len(t, doc.Tracks[0].Segments, 1)
	pts := doc.Tracks[0].Segments[0].Points
	require.Len(t, pts, 2)
	assert.InDelta(t, -12.0464, pts[0].Latitude, 1e-9)
	assert.InDelta(t, -77.0428, pts[0].Longitude, 1e-9)
	require.Len(t, doc.Waypoints, 1)
	assert.Equal(t, "Cafe", doc.Waypoints[0].Name)
	assert.Equal(t, domain.DefaultIconType, doc.Waypoints[0].Symbol)
}

// ---- GET /api/routes/{route_id}/export?format=csv --------------------------

func TestExportRoute_CSV(t *testing.T) {
	rec := serve(t, exportBackend(routeWithMarker()), http.MethodGet, "/api/routes/"+routeID+"/export?format=csv", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="route-`+routeID+`.csv"`, rec.Header().Get("Content-Disposition"))

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"kind", "index", "lon", "lat", "label", "icon_type"},
		{"vertex", "0", "-77.0428", "-12.0464", "", ""},
		{"vertex", "1", "-77.0282", "-12.1211", "", ""},
		{"marker", "4", "-77.03", "-12.05", "Cafe", "default"},
	}, rows)
}

func TestExportRoute_422_UnknownFormat(t *testing.T) {
	rec := serve(t, exportBackend(routeWithMarker()), http.MethodGet, "/api/routes/"+routeID+"/export?format=kml", nil, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "format must be gpx or csv", detailOf(t, rec))
}

func TestExportRoute_500_PointGeometry(t *testing.T) {
	r := lineRoute(routeID)
	r.Geometry = domain.PointGeometry(domain.Position{1, 2})

	rec := serve(t, exportBackend(r), http.MethodGet, "/api/routes/"+routeID+"/export", nil, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExportRoute_404(t *testing.T) {
	b := &mockBackend{
		getRoute: func(context.Context, string, string) (domain.Route, error) {
			return domain.Route{}, rejected(domain.ErrNotFound, "Route not found")
		},
	}

	rec := serve(t, b, http.MethodGet, "/api/routes/"+routeID+"/export", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
