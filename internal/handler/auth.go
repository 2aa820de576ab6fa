package handler

import (
	"net/http"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/middleware"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /api/auth/register.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var in devbackend.Credentials
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.backend.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Login handles POST /api/auth/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var in devbackend.Credentials
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.backend.Login(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Refresh handles POST /api/auth/refresh.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.backend.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Me handles GET /api/auth/me.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u, err := s.backend.Me(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
