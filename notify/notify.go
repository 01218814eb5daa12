package notify

import (
	"context"
	"time"
)

// =============================================================================
// Notification Types
// =============================================================================

// EventType represents the type of interview lifecycle event.
type EventType string

// Event type constants.
const (
	EventSessionStarted       EventType = "session_started"
	EventAvatarUnavailable    EventType = "avatar_unavailable"
	EventRecordingUnavailable EventType = "recording_unavailable"
	EventSessionFinishing     EventType = "session_finishing"
	EventRecordingUploaded    EventType = "recording_uploaded"
	EventSessionCompleted     EventType = "session_completed"
	EventFinalizeStepFailed   EventType = "finalize_step_failed"
	EventSessionRecovered     EventType = "session_recovered"
)

// Severity constants.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Event describes an interview lifecycle event for notification.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID int64          `json:"session_id"`
	Step      string         `json:"step,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"` // SeverityInfo, SeverityWarning, SeverityError
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier sends notifications about interview events.
type Notifier interface {
	// Notify sends a notification. Implementations should be non-blocking
	// and handle errors gracefully (log, don't crash).
	Notify(ctx context.Context, event Event) error
}

// Emit sends event to the notifier in ctx, if any. A zero Timestamp is
// set to now and an empty Severity to SeverityInfo. Errors are dropped;
// notifiers log their own failures.
func Emit(ctx context.Context, event Event) {
	n := NotifierFromContext(ctx)
	if n == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	_ = n.Notify(ctx, event)
}

// =============================================================================
// Context Injection
// =============================================================================

type serviceContextKey string

const notifierServiceKey serviceContextKey = "interviewroom.notifier"

// WithNotifier adds a Notifier to the context.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierServiceKey, n)
}

// NotifierFromContext extracts the Notifier from context.
// Returns nil if no notifier is configured.
func NotifierFromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierServiceKey).(Notifier); ok {
		return n
	}
	return nil
}

// MustNotifierFromContext extracts the Notifier or panics.
func MustNotifierFromContext(ctx context.Context) Notifier {
	n := NotifierFromContext(ctx)
	if n == nil {
		panic("interviewroom: Notifier not found in context")
	}
	return n
}
