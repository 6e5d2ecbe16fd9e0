package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoPrincipal is returned when a handler needs an authenticated user.
	ErrNoPrincipal = errors.New("no authenticated user")
)
