package auth

import "errors"

// Authentication errors.
var (
	// ErrInvalidToken indicates the token is malformed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token has expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrNoSession indicates the session was torn down or never initialized.
	ErrNoSession = errors.New("no active session")
)
