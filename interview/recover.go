package interview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/notify"
	"github.com/randalmurphal/interviewroom/store"
)

// RecoveryJournal lists sessions a previous run left open.
type RecoveryJournal interface {
	Unfinished(ctx context.Context) ([]store.JournalEntry, error)
	MarkStatus(ctx context.Context, interviewID int64, status string, at time.Time) error
}

// Ender ends sessions on the backend.
type Ender interface {
	EndInterview(ctx context.Context, interviewID int64) (*backend.EndResponse, error)
}

// RecoveryReport lists what a recovery sweep did.
type RecoveryReport struct {
	Recovered []int64
	Failed    map[int64]error
}

// Recover ends every session the journal still shows as active or
// finishing. These are sessions whose process died before finalize or the
// unload request got through. The end endpoint is idempotent, so a
// session the backend already closed is simply marked completed here.
// Failures are reported and left journaled for the next sweep.
func Recover(ctx context.Context, journal RecoveryJournal, ender Ender, logger *slog.Logger) (*RecoveryReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	open, err := journal.Unfinished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unfinished sessions: %w", err)
	}

	report := &RecoveryReport{Failed: map[int64]error{}}
	for _, entry := range open {
		id := entry.InterviewID
		if _, err := ender.EndInterview(ctx, id); err != nil {
			logger.Warn("recover session failed", "session_id", id, "error", err)
			report.Failed[id] = err
			continue
		}
		if err := journal.MarkStatus(ctx, id, store.StatusCompleted, time.Now()); err != nil {
			logger.Warn("journal status failed", "session_id", id, "error", err)
		}

		report.Recovered = append(report.Recovered, id)
		logger.Info("recovered session", "session_id", id, "was", entry.Status)
		notify.Emit(ctx, notify.Event{
			Type:      notify.EventSessionRecovered,
			SessionID: id,
			Message:   fmt.Sprintf("Ended interview left %s by a previous run", entry.Status),
			Metadata:  map[string]any{"started_at": entry.StartedAt.Format(time.RFC3339)},
		})
	}
	return report, nil
}
