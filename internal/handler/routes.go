package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/middleware"
)

// ListRoutes handles GET /api/routes.
// Supports ?q=, ?page=, ?page_size=, ?sort=, ?order= and ?bbox=.
func (s *Server) ListRoutes(w http.ResponseWriter, r *http.Request) {
	q, err := bindListQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	routes, err := s.backend.ListRoutes(r.Context(), middleware.UserID(r.Context()), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

// GetSharedRoute handles GET /api/routes/share/{token}.
func (s *Server) GetSharedRoute(w http.ResponseWriter, r *http.Request) {
	route, err := s.backend.SharedRoute(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// GetRoute handles GET /api/routes/{route_id}.
func (s *Server) GetRoute(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "route_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	route, err := s.backend.GetRoute(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// CreateRoute handles POST /api/routes.
func (s *Server) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var in devbackend.RouteInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	route, err := s.backend.CreateRoute(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, route)
}

// UpdateRoute handles PUT /api/routes/{route_id}.
func (s *Server) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "route_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p devbackend.RoutePatch
	if err := decodeBody(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	route, err := s.backend.UpdateRoute(r.Context(), middleware.UserID(r.Context()), id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// DeleteRoute handles DELETE /api/routes/{route_id}.
func (s *Server) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "route_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.backend.DeleteRoute(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
