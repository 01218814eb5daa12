package errors

import "errors"

// Common CLI errors with actionable guidance.
var (
	// ErrNotAuthenticated indicates the candidate needs to log in.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired indicates the saved access token has expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrMissingProfile indicates the login carries no usable identity.
	ErrMissingProfile = errors.New("missing profile")

	// ErrInterviewNotFound indicates the interview id is unknown.
	ErrInterviewNotFound = errors.New("interview not found")

	// ErrConnectionFailed indicates the server is unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = errors.New("permission denied")
)
