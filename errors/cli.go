package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/interviewroom/auth"
	ihttp "github.com/randalmurphal/interviewroom/http"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// ErrorMessenger provides customizable error messages.
type ErrorMessenger interface {
	// AuthErrorMessage returns the message and suggestion for unauthenticated errors.
	AuthErrorMessage() (message, suggestion string)

	// SessionExpiredMessage returns the message and suggestion for expired logins.
	SessionExpiredMessage() (message, suggestion string)

	// PermissionDeniedMessage returns the message and suggestion for permission errors.
	PermissionDeniedMessage() (message, suggestion string)

	// MissingProfileMessage returns the message and suggestion when the
	// login has no usable identity.
	MissingProfileMessage() (message, suggestion string)

	// InterviewNotFoundMessage returns the message and suggestion for an
	// unknown interview id.
	InterviewNotFoundMessage(interviewID int64) (message, suggestion string)

	// ConnectionErrorMessage returns the message and suggestion for connection errors.
	ConnectionErrorMessage(serverURL string) (message, suggestion string)

	// TLSErrorMessage returns the message and suggestion for TLS/certificate errors.
	TLSErrorMessage(serverURL string) (message, suggestion string)

	// TimeoutErrorMessage returns the message and suggestion for timeout errors.
	TimeoutErrorMessage(serverURL string) (message, suggestion string)
}

// DefaultMessenger provides the interviewroom CLI messages.
type DefaultMessenger struct{}

func (m DefaultMessenger) AuthErrorMessage() (string, string) {
	return "You are not logged in.", "Run 'interviewroom login' first."
}

func (m DefaultMessenger) SessionExpiredMessage() (string, string) {
	return "Your session has expired.", "Run 'interviewroom login' again."
}

func (m DefaultMessenger) PermissionDeniedMessage() (string, string) {
	return "You don't have permission to perform this action.",
		"Check that you are logged in as the right candidate."
}

func (m DefaultMessenger) MissingProfileMessage() (string, string) {
	return "You must be logged in and have a valid profile.",
		"Complete your profile on the web app, then run 'interviewroom login' again."
}

func (m DefaultMessenger) InterviewNotFoundMessage(interviewID int64) (string, string) {
	return fmt.Sprintf("Interview %d was not found.", interviewID),
		"Check the interview id. Past sessions are listed by 'interviewroom recover --list'."
}

func (m DefaultMessenger) ConnectionErrorMessage(serverURL string) (string, string) {
	return fmt.Sprintf("Cannot connect to server at %s", serverURL),
		"Check that:\n  - The server is running\n  - api_url is correct (interviewroom config)\n  - Your network connection is working"
}

func (m DefaultMessenger) TLSErrorMessage(serverURL string) (string, string) {
	return fmt.Sprintf("TLS/certificate error connecting to %s", serverURL),
		"Check that the server certificate is valid."
}

func (m DefaultMessenger) TimeoutErrorMessage(serverURL string) (string, string) {
	return fmt.Sprintf("Connection to %s timed out", serverURL),
		"The server may be overloaded or unreachable.\nTry again in a moment."
}

// WrapConfig configures error wrapping behavior.
type WrapConfig struct {
	Messenger ErrorMessenger
}

// Option configures WrapConfig.
type Option func(*WrapConfig)

// WithMessenger sets a custom error messenger.
func WithMessenger(m ErrorMessenger) Option {
	return func(c *WrapConfig) {
		c.Messenger = m
	}
}

func getMessenger(opts []Option) ErrorMessenger {
	cfg := &WrapConfig{
		Messenger: DefaultMessenger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.Messenger
}

// WrapAuthError wraps authentication-related errors with helpful guidance.
func WrapAuthError(err error, opts ...Option) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	messenger := getMessenger(opts)

	if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrInvalidToken) ||
		(strings.Contains(errStr, "token") && (strings.Contains(errStr, "expired") || strings.Contains(errStr, "invalid"))) {
		msg, suggestion := messenger.SessionExpiredMessage()
		return &CLIError{
			Err:        ErrSessionExpired,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if errors.Is(err, auth.ErrNoSession) || ihttp.IsUnauthorized(err) ||
		strings.Contains(errStr, "unauthenticated") || strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "401") {
		msg, suggestion := messenger.AuthErrorMessage()
		return &CLIError{
			Err:        ErrNotAuthenticated,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if ihttp.IsForbidden(err) || strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "403") {
		msg, suggestion := messenger.PermissionDeniedMessage()
		return &CLIError{
			Err:        ErrPermissionDenied,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	return err
}

// WrapConnectionError wraps connection-related errors with helpful guidance.
func WrapConnectionError(err error, serverURL string, opts ...Option) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	messenger := getMessenger(opts)

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp") {
		msg, suggestion := messenger.ConnectionErrorMessage(serverURL)
		return &CLIError{
			Err:        ErrConnectionFailed,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if strings.Contains(errStr, "certificate") || strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") {
		msg, suggestion := messenger.TLSErrorMessage(serverURL)
		return &CLIError{
			Err:        ErrConnectionFailed,
			Message:    msg,
			Details:    err.Error(),
			Suggestion: suggestion,
		}
	}

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		msg, suggestion := messenger.TimeoutErrorMessage(serverURL)
		return &CLIError{
			Err:        ErrConnectionFailed,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	return err
}

// WrapInterviewError wraps errors from calls about one interview.
func WrapInterviewError(err error, interviewID int64, opts ...Option) error {
	if err == nil {
		return nil
	}

	if ihttp.IsNotFound(err) {
		msg, suggestion := getMessenger(opts).InterviewNotFoundMessage(interviewID)
		return &CLIError{
			Err:        fmt.Errorf("%w: %w", ErrInterviewNotFound, err),
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	return err
}

// Wrap applies the auth, then connection wrappers. Errors neither
// recognizes are returned unchanged.
func Wrap(err error, serverURL string, opts ...Option) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	if wrapped := WrapAuthError(err, opts...); wrapped != err {
		return wrapped
	}
	return WrapConnectionError(err, serverURL, opts...)
}

// NewMissingProfileError creates the error for a login with no usable
// identity.
func NewMissingProfileError(cause error, opts ...Option) error {
	messenger := getMessenger(opts)
	msg, suggestion := messenger.MissingProfileMessage()
	if cause == nil {
		cause = ErrMissingProfile
	} else {
		cause = fmt.Errorf("%w: %w", ErrMissingProfile, cause)
	}
	return &CLIError{
		Err:        cause,
		Message:    msg,
		Suggestion: suggestion,
	}
}

// NewNotAuthenticatedError creates an error for unauthenticated users.
func NewNotAuthenticatedError(opts ...Option) error {
	messenger := getMessenger(opts)
	msg, suggestion := messenger.AuthErrorMessage()
	return &CLIError{
		Err:        ErrNotAuthenticated,
		Message:    msg,
		Suggestion: suggestion,
	}
}
