package notify

import (
	"context"
	"log/slog"
	"sort"
)

// =============================================================================
// LogNotifier
// =============================================================================

// LogNotifier writes events to a slog logger. Warning and error severities
// map to the matching log levels.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs to the given logger.
// If logger is nil, uses the default slog logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	n.Logger.LogAttrs(ctx, levelFor(event.Severity), event.Message, eventAttrs(event)...)
	return nil
}

func levelFor(severity string) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// eventAttrs flattens the event into attributes. Empty fields are left out
// and metadata keys are emitted in sorted order under a "meta" group.
func eventAttrs(event Event) []slog.Attr {
	attrs := []slog.Attr{slog.String("type", string(event.Type))}
	if event.SessionID != 0 {
		attrs = append(attrs, slog.Int64("session_id", event.SessionID))
	}
	if event.Step != "" {
		attrs = append(attrs, slog.String("step", event.Step))
	}
	if len(event.Metadata) == 0 {
		return attrs
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	meta := make([]any, 0, len(keys))
	for _, k := range keys {
		meta = append(meta, slog.Any(k, event.Metadata[k]))
	}
	return append(attrs, slog.Group("meta", meta...))
}
