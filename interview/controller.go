package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/randalmurphal/interviewroom/auth"
	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/finalize"
	"github.com/randalmurphal/interviewroom/notify"
	"github.com/randalmurphal/interviewroom/recognition"
	"github.com/randalmurphal/interviewroom/store"
	"github.com/randalmurphal/interviewroom/transcript"
)

// ErrMissingIdentity is returned by Start when the candidate has no name
// or email on file. No request is sent.
var ErrMissingIdentity = errors.New("you must be logged in and have a valid profile")

// ErrAlreadyStarted is returned by Start on a controller whose session has
// already begun.
var ErrAlreadyStarted = errors.New("interview already started")

// =============================================================================
// Collaborators
// =============================================================================

// Backend is the interview API surface the controller drives.
type Backend interface {
	StartInterview(ctx context.Context, req backend.StartRequest) (*backend.StartResponse, error)
	TranscriptAPI
	finalize.Backend
}

// Recognizer is continuous speech-to-text. *recognition.Adapter satisfies
// it.
type Recognizer interface {
	OnUtterance(fn func(recognition.Result))
	Start(ctx context.Context) error
	Stop() error
}

// Recorder is the local capture. *capture.Recorder satisfies it.
type Recorder interface {
	SetKey(key string)
	Start(ctx context.Context) error
	Stop()
	Stopped() <-chan struct{}
	finalize.ArtifactSource
}

// Journal persists session status for crash recovery. *store.Store
// satisfies it.
type Journal interface {
	RecordSession(ctx context.Context, interviewID int64, startedAt time.Time) error
	MarkStatus(ctx context.Context, interviewID int64, status string, at time.Time) error
	SetRecordingURL(ctx context.Context, interviewID int64, url string) error
}

// Config configures a Controller. Backend is required. Recognizer,
// Recorder, Journal, and Navigator are optional; leave them nil (not a
// typed nil pointer) to run without them.
type Config struct {
	Backend    Backend
	Uploader   finalize.Uploader
	Navigator  finalize.Navigator
	Recognizer Recognizer
	Recorder   Recorder
	Journal    Journal

	// Retention removes a recording once it is attached. Recordings are
	// left on disk when nil.
	Retention finalize.Releaser

	// View receives the transcript. A fresh view is used when nil.
	View *transcript.View

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// TranscriptDir, when set, receives a Markdown export of the final
	// transcript as {id}.md.
	TranscriptDir string

	Logger *slog.Logger
	Now    func() time.Time
}

// StartOptions describe the candidate for a start request.
type StartOptions struct {
	Identity      auth.Identity
	TargetRole    string
	Skills        []string
	ResumeSummary string
}

// OptionsFromSession builds StartOptions from the signed-in session.
func OptionsFromSession(s *auth.Session) StartOptions {
	return StartOptions{
		Identity:      s.Identity(),
		TargetRole:    s.TargetRole(),
		Skills:        s.Skills(),
		ResumeSummary: s.ResumeSummary(),
	}
}

func (o StartOptions) role() string {
	switch {
	case o.TargetRole != "":
		return o.TargetRole
	case o.Identity.Role != "":
		return o.Identity.Role
	default:
		return "candidate"
	}
}

func (o StartOptions) request(now time.Time) backend.StartRequest {
	var summary *string
	if o.ResumeSummary != "" {
		s := o.ResumeSummary
		summary = &s
	}
	role := o.role()
	return backend.NewStartRequest(backend.Candidate{
		Name:          o.Identity.Name,
		Email:         o.Identity.Email,
		Role:          role,
		ResumeSummary: summary,
	}, role, o.Skills, now)
}

// =============================================================================
// Controller
// =============================================================================

// Controller owns one interview session from start request to completion.
// It is single use: once the session completes, create a new Controller
// for the next attempt. A failed Start may be retried.
type Controller struct {
	backend    Backend
	recognizer Recognizer
	recorder   Recorder
	journal    Journal
	pipeline   *finalize.Pipeline
	sync       *Synchronizer
	exportDir  string
	logger     *slog.Logger
	now        func() time.Time

	guard FinalizeGuard

	mu        sync.Mutex
	session   Session
	starting  bool
	recording bool
	runCtx    context.Context
	cancelRun context.CancelFunc
	outcome   *finalize.State

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Backend == nil {
		return nil, errors.New("interview: backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	pipeline, err := finalize.New(finalize.Config{
		Backend:   cfg.Backend,
		Uploader:  cfg.Uploader,
		Navigator: cfg.Navigator,
		Retention: cfg.Retention,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	c := &Controller{
		backend:    cfg.Backend,
		recognizer: cfg.Recognizer,
		recorder:   cfg.Recorder,
		journal:    cfg.Journal,
		pipeline:   pipeline,
		sync: NewSynchronizer(cfg.Backend, cfg.View, SyncConfig{
			Interval: cfg.PollInterval,
			Logger:   logger,
		}),
		exportDir: cfg.TranscriptDir,
		logger:    logger,
		now:       now,
		session:   Session{Status: StatusNotStarted},
		done:      make(chan struct{}),
	}
	if c.recognizer != nil {
		c.recognizer.OnUtterance(c.handleUtterance)
	}
	return c, nil
}

// Session returns a snapshot of the session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Status returns the session status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Status
}

// View returns the transcript view for rendering.
func (c *Controller) View() *transcript.View {
	return c.sync.View()
}

// Done is closed once the session reaches StatusCompleted.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the session completes or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome returns the finalize result once the session has completed.
func (c *Controller) Outcome() (finalize.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return finalize.State{}, false
	}
	return *c.outcome, true
}

// =============================================================================
// Start
// =============================================================================

// Start requests a new session and, on success, starts the recorder,
// recognition, and the transcript pull loop. This is the only operation
// whose failure the caller must show: a missing identity or a failed start
// request leaves the controller NotStarted so the user can retry.
//
// The session is Active before the devices come up. If it ends while they
// are starting, they are stopped again as soon as Start returns from them.
//
// The session outlives ctx's cancellation but keeps its values, so a
// notifier placed in ctx receives the session's events.
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	c.mu.Lock()
	if c.starting || c.session.Status != StatusNotStarted {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if !opts.Identity.Complete() {
		c.mu.Unlock()
		return ErrMissingIdentity
	}
	c.starting = true
	c.mu.Unlock()

	resp, err := c.backend.StartInterview(ctx, opts.request(c.now()))
	if err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
		return fmt.Errorf("start interview: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var events []notify.Event

	c.mu.Lock()
	c.session = newSession(resp, c.now())
	c.runCtx, c.cancelRun = runCtx, cancel
	c.starting = false
	sess := c.session.clone()

	events = append(events, notify.Event{
		Type:      notify.EventSessionStarted,
		SessionID: sess.ID,
		Message:   fmt.Sprintf("Interview started with %d questions", len(sess.Questions)),
	})
	if avatar := sess.Avatar(); avatar != AvatarReady {
		events = append(events, notify.Event{
			Type:      notify.EventAvatarUnavailable,
			SessionID: sess.ID,
			Message:   sess.AvatarError,
			Severity:  notify.SeverityWarning,
			Metadata:  map[string]any{"cause": avatar.String()},
		})
	}
	c.mu.Unlock()

	if c.journal != nil {
		if err := c.journal.RecordSession(runCtx, sess.ID, sess.StartedAt); err != nil {
			c.logger.Warn("journal session failed", "session_id", sess.ID, "error", err)
		}
	}

	c.logger.Info("interview started",
		"session_id", sess.ID,
		"questions", len(sess.Questions),
		"avatar", sess.Avatar().String(),
	)
	for _, e := range events {
		notify.Emit(runCtx, e)
	}

	// Devices start unlocked; the result is committed below.
	recErr := c.startRecorder(runCtx, sess.ID)
	if recErr != nil {
		notify.Emit(runCtx, notify.Event{
			Type:      notify.EventRecordingUnavailable,
			SessionID: sess.ID,
			Message:   recErr.Error(),
			Severity:  notify.SeverityWarning,
		})
	}
	c.startRecognition(runCtx, sess.ID)

	c.mu.Lock()
	active := c.session.Status == StatusActive
	if active {
		c.recording = recErr == nil
		c.sync.StartPulling(runCtx, sess.ID, c.isActive)
	}
	c.mu.Unlock()

	switch {
	case !active:
		c.releaseLateDevices(sess.ID, recErr == nil)
	case recErr == nil:
		c.watchRecorder(runCtx)
	}
	return nil
}

// startRecorder starts the local capture keyed to the session. Recording
// is best-effort: on failure the session continues without one.
func (c *Controller) startRecorder(ctx context.Context, id int64) error {
	if c.recorder == nil {
		return errors.New("no recorder configured")
	}
	c.recorder.SetKey(strconv.FormatInt(id, 10))
	if err := c.recorder.Start(ctx); err != nil {
		c.logger.Warn("recording unavailable", "session_id", id, "error", err)
		return err
	}
	return nil
}

// watchRecorder finalizes once the recording settles.
func (c *Controller) watchRecorder(ctx context.Context) {
	stopped := c.recorder.Stopped()
	go func() {
		select {
		case <-stopped:
			c.finalize("recorder_stopped")
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) startRecognition(ctx context.Context, id int64) {
	if c.recognizer == nil {
		return
	}
	if err := c.recognizer.Start(ctx); err != nil {
		c.logger.Warn("speech recognition unavailable", "session_id", id, "error", err)
	}
}

// releaseLateDevices stops devices that came up after the session had
// already begun finishing. Their output is not part of the session; a
// leftover recording is removed by retention cleanup.
func (c *Controller) releaseLateDevices(id int64, recording bool) {
	c.logger.Info("session ended while devices were starting", "session_id", id)
	if recording {
		c.recorder.Stop()
	}
	if c.recognizer != nil {
		if err := c.recognizer.Stop(); err != nil {
			c.logger.Warn("stop recognition failed", "error", err)
		}
	}
}

func (c *Controller) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Status == StatusActive
}

// handleUtterance files a recognized utterance under the question current
// at recognition time.
func (c *Controller) handleUtterance(r recognition.Result) {
	c.mu.Lock()
	if c.session.Status != StatusActive {
		c.mu.Unlock()
		return
	}
	id := c.session.ID
	q, ok := c.session.CurrentQuestion()
	ctx := c.runCtx
	c.mu.Unlock()

	u := transcript.Utterance{Speaker: transcript.SpeakerCandidate, Text: r.Text, At: r.At}
	if !ok {
		c.logger.Debug("no question to file answer under", "session_id", id)
		c.sync.Echo(u)
		return
	}
	c.sync.Push(ctx, id, q.ID, u)
}

// =============================================================================
// End triggers
// =============================================================================

// End is the explicit end of the interview. With a recording running it
// stops the recorder and finalize runs once the recording settles;
// otherwise finalize runs right away without an artifact. End returns
// without waiting; use Done or Wait. Calling End again, or before Start,
// does nothing.
func (c *Controller) End() {
	c.mu.Lock()
	recording := c.recording
	c.mu.Unlock()

	if !c.beginFinishing("end") {
		return
	}
	if recording {
		c.recorder.Stop()
		return
	}
	go c.finalize("end")
}

// Unload is the teardown path: the terminal or process is going away. If
// finalize has not been claimed yet it is claimed here, local capture and
// recognition stop, and a single end request is fired without upload. The
// returned channel closes when that request returns; callers may wait on
// it briefly but need not. If finalize already owns the session, the
// channel is Done.
func (c *Controller) Unload() <-chan struct{} {
	c.mu.Lock()
	status := c.session.Status
	id := c.session.ID
	recording := c.recording
	ctx := c.runCtx
	c.mu.Unlock()

	if status == StatusNotStarted {
		return closedChan
	}
	if !c.guard.Claim() {
		return c.done
	}

	c.beginFinishing("unload")
	if recording {
		c.recorder.Stop()
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		state := finalize.State{InterviewID: id}
		if _, err := c.backend.EndInterview(ctx, id); err != nil {
			c.logger.Warn("end request on unload failed", "session_id", id, "error", err)
		} else {
			state.Ended = true
		}
		c.complete(ctx, state)
	}()
	return c.done
}

// Close releases the session's background work. It does not end the
// session; call End or Unload first.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.cancelRun
	c.mu.Unlock()

	c.stopLocalProcesses()
	if cancel != nil {
		cancel()
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// beginFinishing moves Active to Finishing and stops recognition and
// pulls. It reports whether this call made the transition.
func (c *Controller) beginFinishing(trigger string) bool {
	c.mu.Lock()
	if c.session.Status != StatusActive {
		c.mu.Unlock()
		return false
	}
	c.session.Status = StatusFinishing
	id := c.session.ID
	ctx := c.runCtx
	c.mu.Unlock()

	c.stopLocalProcesses()

	c.logger.Info("interview finishing", "session_id", id, "trigger", trigger)
	if c.journal != nil {
		if err := c.journal.MarkStatus(ctx, id, store.StatusFinishing, c.now()); err != nil {
			c.logger.Warn("journal status failed", "session_id", id, "error", err)
		}
	}
	notify.Emit(ctx, notify.Event{
		Type:      notify.EventSessionFinishing,
		SessionID: id,
		Message:   "Interview finishing",
		Metadata:  map[string]any{"trigger": trigger},
	})
	return true
}

func (c *Controller) stopLocalProcesses() {
	if c.recognizer != nil {
		if err := c.recognizer.Stop(); err != nil {
			c.logger.Warn("stop recognition failed", "error", err)
		}
	}
	c.sync.StopPulling()
}

// finalize runs the pipeline if nothing has claimed the session yet.
func (c *Controller) finalize(trigger string) {
	c.beginFinishing(trigger)
	if !c.guard.Claim() {
		c.logger.Debug("finalize already claimed", "trigger", trigger)
		return
	}

	c.mu.Lock()
	id := c.session.ID
	ctx := context.WithoutCancel(c.runCtx)
	var src finalize.ArtifactSource
	if c.recording {
		src = c.recorder
	}
	c.mu.Unlock()

	state := c.pipeline.Run(ctx, id, src)
	c.complete(ctx, state)
}

// complete marks the session Completed. A session whose end request
// failed stays journaled as finishing so the recovery sweep retries it.
func (c *Controller) complete(ctx context.Context, state finalize.State) {
	c.mu.Lock()
	c.session.Status = StatusCompleted
	c.outcome = &state
	sess := c.session.clone()
	c.mu.Unlock()

	if c.journal != nil {
		if state.RecordingURL != "" {
			if err := c.journal.SetRecordingURL(ctx, sess.ID, state.RecordingURL); err != nil {
				c.logger.Warn("journal recording failed", "session_id", sess.ID, "error", err)
			}
		}
		if state.Ended {
			if err := c.journal.MarkStatus(ctx, sess.ID, store.StatusCompleted, c.now()); err != nil {
				c.logger.Warn("journal status failed", "session_id", sess.ID, "error", err)
			}
		}
	}

	if c.exportDir != "" {
		if err := c.export(ctx, sess, state); err != nil {
			c.logger.Warn("transcript export failed", "session_id", sess.ID, "error", err)
		}
	}

	severity := notify.SeverityInfo
	if !state.Ended {
		severity = notify.SeverityWarning
	}
	notify.Emit(ctx, notify.Event{
		Type:      notify.EventSessionCompleted,
		SessionID: sess.ID,
		Message:   "Interview completed",
		Severity:  severity,
		Metadata: map[string]any{
			"uploaded": state.Uploaded(),
			"ended":    state.Ended,
			"failures": len(state.Failures),
		},
	})
	c.logger.Info("interview completed", "session_id", sess.ID, "outcome", state.String())

	c.doneOnce.Do(func() { close(c.done) })
}

// export writes the final transcript as Markdown.
func (c *Controller) export(ctx context.Context, sess Session, state finalize.State) error {
	if state.Ended {
		if err := c.sync.Refresh(ctx, sess.ID); err != nil {
			c.logger.Debug("final transcript pull failed", "session_id", sess.ID, "error", err)
		}
	}

	if err := os.MkdirAll(c.exportDir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	path := filepath.Join(c.exportDir, fmt.Sprintf("%d.md", sess.ID))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	defer f.Close()

	header := transcript.Header{
		SessionID:    sess.ID,
		Status:       string(sess.Status),
		StartedAt:    sess.StartedAt,
		EndedAt:      c.now(),
		RecordingURL: state.RecordingURL,
	}
	if err := transcript.NewViewer("").ExportMarkdown(f, header, c.sync.View().Snapshot()); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	c.logger.Debug("transcript exported", "session_id", sess.ID, "path", path)
	return nil
}
