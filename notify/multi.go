package notify

import (
	"context"
	"errors"
	"log/slog"
)

// =============================================================================
// MultiNotifier
// =============================================================================

// MultiNotifier sends each event to every notifier in order.
type MultiNotifier struct {
	Notifiers []Notifier
	Logger    *slog.Logger
}

// NewMultiNotifier creates a notifier that fans out to multiple notifiers.
// A failing notifier is logged and does not stop the others.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		Notifiers: notifiers,
		Logger:    slog.Default(),
	}
}

// Notify implements Notifier. The returned error joins every failure.
func (n *MultiNotifier) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, notifier := range n.Notifiers {
		err := notifier.Notify(ctx, event)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if n.Logger != nil {
			n.Logger.Warn("notifier failed",
				"event_type", event.Type,
				"session_id", event.SessionID,
				"error", err,
			)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// FilterNotifier
// =============================================================================

// FilterNotifier forwards only the listed event types. Used to keep chat
// channels to session outcomes while the log sees everything.
type FilterNotifier struct {
	Next  Notifier
	Types map[EventType]bool
}

// NewFilterNotifier wraps next so it only receives types.
func NewFilterNotifier(next Notifier, types ...EventType) *FilterNotifier {
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return &FilterNotifier{Next: next, Types: set}
}

// Notify implements Notifier.
func (n *FilterNotifier) Notify(ctx context.Context, event Event) error {
	if !n.Types[event.Type] {
		return nil
	}
	return n.Next.Notify(ctx, event)
}

// OutcomeEvents are the events worth a chat message: how a session ended
// and what went wrong on the way.
var OutcomeEvents = []EventType{
	EventAvatarUnavailable,
	EventFinalizeStepFailed,
	EventSessionCompleted,
	EventSessionRecovered,
}
