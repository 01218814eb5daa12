// Package notify reports interview lifecycle events.
//
// Core types:
//   - Notifier: Interface for sending notifications
//   - Event: Notification event with type, session, message, and metadata
//   - EventType: Type of event (session started, recording uploaded, ...)
//
// Implementations:
//   - SlackNotifier: Sends notifications to Slack webhooks
//   - WebhookNotifier: Sends notifications to generic webhooks
//   - LogNotifier: Logs notifications through slog
//   - MultiNotifier: Combines multiple notifiers
//   - NopNotifier: No-op notifier
//
// The notifier travels in the context so deep call sites can report
// without extra parameters:
//
//	ctx = notify.WithNotifier(ctx, notify.NewMultiNotifier(
//	    notify.NewLogNotifier(logger),
//	    notify.NewSlackNotifier(webhookURL, notify.WithSlackChannel("#interviews")),
//	))
//	notify.Emit(ctx, notify.Event{
//	    Type:      notify.EventSessionCompleted,
//	    SessionID: 42,
//	    Message:   "Interview completed",
//	})
package notify
