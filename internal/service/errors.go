package service

import "errors"

var (
	// ErrInvalidCredentials is the single answer for every unauthorized
	// sub-condition: unknown email, wrong password, unknown, expired,
	// revoked or replayed refresh secret. Callers must not be able to tell
	// which one triggered it.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStoreUnavailable marks transient persistence failures. Distinct
	// from ErrInvalidCredentials so clients retry instead of re-logging-in.
	ErrStoreUnavailable = errors.New("credential store unavailable")

	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRegistration = errors.New("invalid registration")
)
