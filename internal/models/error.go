package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login flow errors
	ErrRateLimited        = errors.New("too many login attempts")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token validation errors
	ErrTokenMissing = errors.New("missing bearer token")
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrUserNotFound = errors.New("token subject not found")

	// Backing store errors
	ErrStoreUnavailable = errors.New("backing store unavailable")
)
