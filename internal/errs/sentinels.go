// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across storage/remote/service layers.
var (
	// ErrNotFound indicates the requested entity or storage key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing, rejected or expired bearer credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the principal is authenticated but lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrNoSession indicates an operation that needs an active session ran as a guest.
	ErrNoSession = errors.New("no active session")

	// ErrInvalidRole indicates an unknown role or a role that cannot own a session.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidQuantity indicates a cart quantity outside the accepted range.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrValidation indicates locally rejected input (empty required field and similar).
	ErrValidation = errors.New("validation failed")

	// ErrStaleResponse indicates a server response superseded by a newer one.
	ErrStaleResponse = errors.New("stale response")
)
