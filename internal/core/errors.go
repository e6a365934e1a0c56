package core

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by the stores, services and handlers.
// Callers wrap these with fmt.Errorf("...: %w", err) and classify with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotEntitled      = errors.New("no active subscription")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrNotFound         = errors.New("not found")
	ErrTransport        = errors.New("provider unavailable")
	ErrStateConsistency = errors.New("inconsistent local state")
	ErrUnavailable      = errors.New("not configured")
)

// StatusCode maps an error from the taxonomy to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotEntitled):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
