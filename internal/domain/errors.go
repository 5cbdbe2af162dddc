package domain

import "errors"

// Error taxonomy surfaced by the core. Domain-rule violations are
// detected before any mutation is attempted; ErrStorageFailure wraps
// collaborator failures unchanged.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidReference = errors.New("invalid reference")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrStorageFailure   = errors.New("storage failure")
)
