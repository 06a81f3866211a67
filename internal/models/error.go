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

	// ErrUnknownRole indicates a stored role value outside the closed
	// enumeration. This is a data-integrity fault, not a user error.
	ErrUnknownRole = errors.New("account role is not recognized")
)
