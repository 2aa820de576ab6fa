package handler

import (
	"net/http"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/middleware"
)

// ListMarkers handles GET /api/routes/{route_id}/markers.
func (s *Server) ListMarkers(w http.ResponseWriter, r *http.Request) {
	routeID, err := pathUUID(r, "route_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	markers, err := s.backend.ListMarkers(r.Context(), middleware.UserID(r.Context()), routeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, markers)
}

// CreateMarker handles POST /api/routes/{route_id}/markers.
func (s *Server) CreateMarker(w http.ResponseWriter, r *http.Request) {
	routeID, err := pathUUID(r, "route_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in devbackend.MarkerInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.backend.CreateMarker(r.Context(), middleware.UserID(r.Context()), routeID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMarker handles PUT /api/routes/{route_id}/markers/{marker_id}.
func (s *Server) UpdateMarker(w http.ResponseWriter, r *http.Request) {
	routeID, markerID, err := markerIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p devbackend.MarkerPatch
	if err := decodeBody(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.backend.UpdateMarker(r.Context(), middleware.UserID(r.Context()), routeID, markerID, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMarker handles DELETE /api/routes/{route_id}/markers/{marker_id}.
func (s *Server) DeleteMarker(w http.ResponseWriter, r *http.Request) {
	routeID, markerID, err := markerIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.backend.DeleteMarker(r.Context(), middleware.UserID(r.Context()), routeID, markerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func markerIDs(r *http.Request) (routeID, markerID string, err error) {
	if routeID, err = pathUUID(r, "route_id"); err != nil {
		return "", "", err
	}
	if markerID, err = pathUUID(r, "marker_id"); err != nil {
		return "", "", err
	}
	return routeID, markerID, nil
}
