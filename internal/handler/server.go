// Package handler implements the HTTP handlers for the BikeRoutes development API.
// All handlers are methods on Server. They are split into resource files
// (auth.go, routes.go, markers.go, export.go) but share the same Server struct
// so they can reach its dependencies. Router wires them into chi.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/middleware"
)

// Backend defines the operations the handlers depend on. Defining it here,
// in the consumer package, lets handler tests inject a mock without a real
// backend. *devbackend.Backend implements it.
type Backend interface {
	Register(ctx context.Context, in devbackend.Credentials) (devbackend.Session, error)
	Login(ctx context.Context, in devbackend.Credentials) (devbackend.Session, error)
	Refresh(ctx context.Context, refreshToken string) (devbackend.Session, error)
	Me(ctx context.Context, userID string) (domain.User, error)
	VerifyAccessToken(token string) (string, error)

	ListRoutes(ctx context.Context, callerID string, q devbackend.ListQuery) ([]domain.Route, error)
	SharedRoute(ctx context.Context, token string) (domain.Route, error)
	GetRoute(ctx context.Context, callerID, id string) (domain.Route, error)
	CreateRoute(ctx context.Context, callerID string, in devbackend.RouteInput) (domain.Route, error)
	UpdateRoute(ctx context.Context, callerID, id string, p devbackend.RoutePatch) (domain.Route, error)
	DeleteRoute(ctx context.Context, callerID, id string) error

	ListMarkers(ctx context.Context, callerID, routeID string) ([]domain.Marker, error)
	CreateMarker(ctx context.Context, callerID, routeID string, in devbackend.MarkerInput) (domain.Marker, error)
	UpdateMarker(ctx context.Context, callerID, routeID, markerID string, p devbackend.MarkerPatch) (domain.Marker, error)
	DeleteMarker(ctx context.Context, callerID, routeID, markerID string) error
}

// Server serves every API endpoint.
type Server struct {
	backend Backend
	logger  *slog.Logger
}

// NewServer constructs the Server with all its dependencies. A nil logger
// falls back to slog.Default().
func NewServer(backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{backend: backend, logger: logger}
}

// Router returns the chi router for the whole API: /healthz, /openapi.yaml,
// and the resource endpoints under /api. Request-scoped middleware (request
// ids, logging, CORS, body limits) is applied by the caller.
func (s *Server) Router() chi.Router {
	required := middleware.NewBearerAuth(s.backend.VerifyAccessToken)
	optional := middleware.NewOptionalBearerAuth(s.backend.VerifyAccessToken)

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.Register)
		r.Post("/auth/login", s.Login)
		r.Post("/auth/refresh", s.Refresh)
		r.With(required).Get("/auth/me", s.Me)

		r.Get("/routes/share/{token}", s.GetSharedRoute)
		r.With(optional).Get("/routes", s.ListRoutes)
		r.With(required).Post("/routes", s.CreateRoute)
		r.With(optional).Get("/routes/{route_id}", s.GetRoute)
		r.With(required).Put("/routes/{route_id}", s.UpdateRoute)
		r.With(required).Delete("/routes/{route_id}", s.DeleteRoute)
		r.With(optional).Get("/routes/{route_id}/export", s.ExportRoute)

		r.With(optional).Get("/routes/{route_id}/markers", s.ListMarkers)
		r.With(required).Post("/routes/{route_id}/markers", s.CreateMarker)
		r.With(required).Put("/routes/{route_id}/markers/{marker_id}", s.UpdateMarker)
		r.With(required).Delete("/routes/{route_id}/markers/{marker_id}", s.DeleteMarker)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}
