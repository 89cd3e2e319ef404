package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for the failure categories surfaced to API callers.
// Services return these (possibly wrapped); handlers map them to HTTP
// statuses with Status.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrAlreadyUsed     = errors.New("token already used")
	ErrExpired         = errors.New("token expired")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
)

// Status maps an error to its HTTP status code. Unknown errors are
// treated as internal.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrAlreadyUsed),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
