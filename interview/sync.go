package interview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/transcript"
)

// DefaultPollInterval keeps transcript pulls under the backend's rate
// limits while staying close to real time.
const DefaultPollInterval = 4 * time.Second

// TranscriptAPI is the part of the interview API the Synchronizer calls.
type TranscriptAPI interface {
	SubmitAnswer(ctx context.Context, interviewID, questionID int64, text string) error
	Transcript(ctx context.Context, interviewID int64) (*backend.TranscriptResponse, error)
}

// SyncConfig configures a Synchronizer.
type SyncConfig struct {
	// Interval defaults to DefaultPollInterval.
	Interval time.Duration
	Logger   *slog.Logger
}

// Synchronizer pushes candidate utterances to the backend and keeps a
// transcript.View in step with the backend's authoritative transcript.
//
// Pushes are fire-and-forget and carry no sequence number, so the backend
// may receive them out of order. Pulls run at a fixed rate and may
// overlap; whichever finishes last wins. A pull that finishes after
// StopPulling is discarded.
type Synchronizer struct {
	api      TranscriptAPI
	view     *transcript.View
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	epoch    uint64
	cancel   context.CancelFunc
	loopDone chan struct{}

	inflight sync.WaitGroup
}

// NewSynchronizer creates a Synchronizer writing into view. A nil view
// gets a fresh one.
func NewSynchronizer(api TranscriptAPI, view *transcript.View, cfg SyncConfig) *Synchronizer {
	if view == nil {
		view = transcript.NewView()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synchronizer{
		api:      api,
		view:     view,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// View returns the transcript view. Readers only.
func (s *Synchronizer) View() *transcript.View {
	return s.view
}

// =============================================================================
// Push
// =============================================================================

// Push echoes u into the view and sends it as an answer update filed under
// questionID. The send runs in the background; a failure is logged.
func (s *Synchronizer) Push(ctx context.Context, interviewID, questionID int64, u transcript.Utterance) {
	s.view.AppendLocal(u)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.api.SubmitAnswer(ctx, interviewID, questionID, u.Text); err != nil {
			s.logger.Warn("answer sync failed",
				"session_id", interviewID,
				"question_id", questionID,
				"error", err,
			)
		}
	}()
}

// Echo adds u to the view without sending it.
func (s *Synchronizer) Echo(u transcript.Utterance) {
	s.view.AppendLocal(u)
}

// =============================================================================
// Pull
// =============================================================================

// StartPulling starts the pull loop for interviewID. active is consulted
// before every tick; the loop exits once it reports false. Calling
// StartPulling while a loop is running does nothing.
func (s *Synchronizer) StartPulling(ctx context.Context, interviewID int64, active func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.epoch++
	s.cancel = cancel
	s.loopDone = make(chan struct{})

	go s.loop(loopCtx, interviewID, s.epoch, active, s.loopDone)
}

// StopPulling stops the loop and waits for it to exit. Pulls still in
// flight are abandoned and their results discarded.
func (s *Synchronizer) StopPulling() {
	s.mu.Lock()
	cancel, done := s.cancel, s.loopDone
	s.cancel, s.loopDone = nil, nil
	s.epoch++
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Refresh pulls once and replaces the view. Unlike the loop it reports the
// error.
func (s *Synchronizer) Refresh(ctx context.Context, interviewID int64) error {
	resp, err := s.api.Transcript(ctx, interviewID)
	if err != nil {
		return err
	}
	if len(resp.Transcript) > 0 {
		s.view.Replace(resp.Utterances())
	}
	return nil
}

// Wait blocks until background pushes and pulls have returned.
func (s *Synchronizer) Wait() {
	s.inflight.Wait()
}

func (s *Synchronizer) loop(ctx context.Context, interviewID int64, epoch uint64, active func() bool, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !active() {
				return
			}
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.pull(ctx, interviewID, epoch)
			}()
		}
	}
}

func (s *Synchronizer) pull(ctx context.Context, interviewID int64, epoch uint64) {
	resp, err := s.api.Transcript(ctx, interviewID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("transcript pull failed", "session_id", interviewID, "error", err)
		}
		return
	}

	// An empty transcript means the backend has nothing yet; keep the
	// local echoes.
	if len(resp.Transcript) == 0 {
		return
	}
	utterances := resp.Utterances()

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || epoch != s.epoch {
		s.logger.Debug("discarding stale transcript pull", "session_id", interviewID)
		return
	}
	s.view.Replace(utterances)
}
