package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Authenticator failure kinds. Each one maps to a distinct response at the
// transport boundary; codec and extractor failures never surface past these.
var (
	ErrInvalidToken    = errors.New("invalid authentication token")
	ErrSessionExpired  = errors.New("session has expired, please login again")
	ErrUnknownUser     = errors.New("no user matching this token was found")
	ErrDeactivatedUser = errors.New("user has been deactivated")
)

// Ephemeral-token failure kinds.
var (
	ErrTokenNotFound = errors.New("access token not found")
	ErrTokenExpired  = errors.New("access token has expired")
)
