package domain

import "errors"

// ErrNotFound is returned when the requested resource does not exist, locally
// or on the server. Stores return it for absent keys.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule before it is sent
// anywhere (e.g. blank route title, fewer than two vertices).
var ErrValidation = errors.New("validation error")

// ErrUnauthorized marks a rejected credential (HTTP 401). It is the only error
// class that triggers the session manager's refresh-and-retry cycle.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when the credential is valid but does not grant
// access to the resource (HTTP 403).
var ErrForbidden = errors.New("forbidden")

// ErrUnauthenticated is returned when an authenticated call is attempted with
// no in-memory session and no stored refresh credential.
var ErrUnauthenticated = errors.New("not signed in")

// ErrConflict is returned when a create collides with an existing resource
// (e.g. registering an email that is already taken).
var ErrConflict = errors.New("conflict")
