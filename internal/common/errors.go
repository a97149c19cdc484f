// Package common defines shared constants and sentinel errors used across
// the layers of ideaforge. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Saga-specific lookup errors.
	ErrIdeaNotFound       = errors.New("idea not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorizedAccess = errors.New("resource belongs to another user")

	// Ledger errors.
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvariantViolation  = errors.New("invariant violation")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Account errors.
	ErrEmailTaken = errors.New("email already registered")
)
