// Package common defines shared constants and sentinel errors used across
// the videotube server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Specific validation failures. Each wraps ErrorValidation, so
	// errors.Is(err, ErrorValidation) matches all of them; the API layer
	// matches the specific ones to pick a response code.
	ErrRequiredInput   = fmt.Errorf("%w: required input missing", ErrorValidation)
	ErrInvalidEmail    = fmt.Errorf("%w: invalid email", ErrorValidation)
	ErrInvalidPassword = fmt.Errorf("%w: invalid password", ErrorValidation)

	// Downstream dependency failures.
	ErrorUpload      = errors.New("upload failed")
	ErrorPersistence = errors.New("persistence error")

	// Auth errors. ErrTokenMalformed covers bad signatures and garbage
	// strings; ErrTokenExpired is kept distinct for diagnostics even though
	// both surface as an authentication failure.
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")

	// ErrRefreshMismatch is returned when a presented refresh token is
	// cryptographically valid but no longer matches the one stored for the
	// user (rotated out by a newer login or cleared by logout).
	ErrRefreshMismatch = errors.New("refresh token mismatch")

	// ErrInvalidCredential is returned when a password check fails.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrRateLimited is returned when the login/registration throttle trips.
	ErrRateLimited = errors.New("rate limited")
)
