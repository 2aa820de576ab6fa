package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// errorBody is the {"detail": "..."} shape every error response uses.
type errorBody struct {
	Detail string `json:"detail"`
}

// bindError is a request rejected before it reaches the backend: an
// unparsable path or query parameter, or a body that is not valid JSON.
type bindError struct {
	status int
	detail string
}

func (e *bindError) Error() string { return e.detail }

func badParam(name string, err error) error {
	return &bindError{status: http.StatusUnprocessableEntity, detail: fmt.Sprintf("invalid %s: %v", name, err)}
}

// statusFor maps a backend error to its HTTP status. ErrMalformed is checked
// before ErrValidation because it wraps it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, devbackend.ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers r with the status and detail for err. Internal errors
// are logged and their text is not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var be *bindError
	if errors.As(err, &be) {
		writeDetail(w, be.status, be.detail)
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeDetail(w, status, "Internal Server Error")
		return
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	detail := devbackend.Detail(err)
	if detail == "" {
		detail = http.StatusText(status)
	}
	writeDetail(w, status, detail)
}

// decodeBody reads a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &bindError{status: http.StatusRequestEntityTooLarge, detail: "request body too large"}
		}
		return &bindError{status: http.StatusUnprocessableEntity, detail: "invalid request body: " + err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}
