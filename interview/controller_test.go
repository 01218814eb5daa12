package interview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/interviewroom/artifact"
	"github.com/randalmurphal/interviewroom/auth"
	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/capture"
	"github.com/randalmurphal/interviewroom/notify"
	"github.com/randalmurphal/interviewroom/recognition"
	"github.com/randalmurphal/interviewroom/store"
	"github.com/randalmurphal/interviewroom/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rig struct {
	backend  *testutil.FakeBackend
	uploader *testutil.FakeUploader
	nav      *testutil.Navigator
	stream   *testutil.FakeStream
	capture  *testutil.FakeCapture
	recorder *capture.Recorder
	dir      string
	ctrl     *Controller
}

func newRig(t *testing.T, configure ...func(*rig, *Config)) *rig {
	t.Helper()

	r := &rig{
		backend:  &testutil.FakeBackend{StartResp: testutil.StartResponse(1, "Tell me about yourself.", "Why Go?")},
		uploader: &testutil.FakeUploader{},
		nav:      testutil.NewNavigator("/interview"),
		stream:   &testutil.FakeStream{},
		capture:  &testutil.FakeCapture{Content: []byte("webm-bytes")},
		dir:      t.TempDir(),
	}
	r.recorder = capture.NewRecorder(r.capture, capture.RecorderConfig{
		Dir:    r.dir,
		Logger: quietLogger(),
	})

	cfg := Config{
		Backend:      r.backend,
		Uploader:     r.uploader,
		Navigator:    r.nav,
		Recognizer:   recognition.NewAdapter(r.stream, recognition.WithLogger(quietLogger())),
		Recorder:     r.recorder,
		PollInterval: time.Hour,
		Logger:       quietLogger(),
	}
	for _, fn := range configure {
		fn(r, &cfg)
	}

	ctrl, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	r.ctrl = ctrl
	return r
}

func (r *rig) start(t *testing.T, ctx context.Context) {
	t.Helper()
	require.NoError(t, r.ctrl.Start(ctx, StartOptions{Identity: testutil.Candidate()}))
}

// recordings lists the files left in the recording directory.
func (r *rig) recordings(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(r.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func withRetention(r *rig, cfg *Config) {
	cfg.Retention = artifact.NewLifecycleManager(r.dir, artifact.DefaultRetentionConfig())
}

func (r *rig) wait(t *testing.T) {
	t.Helper()
	require.NoError(t, r.ctrl.Wait(testutil.TestContextWithTimeout(t, 5*time.Second)))
}

// =============================================================================
// Start
// =============================================================================

func TestStartMissingIdentityMakesNoCalls(t *testing.T) {
	tests := []struct {
		name     string
		identity auth.Identity
	}{
		{"no email", auth.Identity{Name: "Ada"}},
		{"no name", auth.Identity{Email: "ada@example.com"}},
		{"empty", auth.Identity{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)

			err := r.ctrl.Start(context.Background(), StartOptions{Identity: tt.identity})

			assert.ErrorIs(t, err, ErrMissingIdentity)
			assert.Empty(t, r.backend.Calls(), "no network calls")
			assert.Equal(t, StatusNotStarted, r.ctrl.Status())
			assert.Equal(t, 0, r.capture.Begun())
		})
	}
}

func TestStartFailureAllowsRetry(t *testing.T) {
	r := newRig(t)
	r.backend.StartErr = errors.New("backend unavailable")

	err := r.ctrl.Start(context.Background(), StartOptions{Identity: testutil.Candidate()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
	assert.Equal(t, StatusNotStarted, r.ctrl.Status())

	r.backend.StartErr = nil
	r.start(t, context.Background())
	assert.Equal(t, StatusActive, r.ctrl.Status())
}

func TestStartTwice(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())

	err := r.ctrl.Start(context.Background(), StartOptions{Identity: testutil.Candidate()})
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, 1, r.backend.Count(testutil.CallStart))
}

func TestStartSession(t *testing.T) {
	r := newRig(t)
	ctx, rec := testutil.NotifyContext(t)

	require.NoError(t, r.ctrl.Start(ctx, StartOptions{
		Identity:   testutil.Candidate(),
		TargetRole: "Platform Engineer",
	}))

	sess := r.ctrl.Session()
	assert.Equal(t, int64(1), sess.ID)
	assert.Equal(t, StatusActive, sess.Status)
	require.Len(t, sess.Questions, 2)
	q, ok := sess.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, int64(100), q.ID)

	assert.Equal(t, "Platform Engineer", r.backend.CallsNamed(testutil.CallStart)[0].Text)
	assert.Equal(t, 1, r.capture.Begun(), "recorder started")
	assert.Equal(t, 1, r.stream.Starts(), "recognition started")
	assert.Equal(t, []notify.EventType{notify.EventSessionStarted}, rec.Types())
}

func TestStartRoleFallback(t *testing.T) {
	tests := []struct {
		name string
		opts StartOptions
		want string
	}{
		{"target role", StartOptions{TargetRole: "SRE", Identity: auth.Identity{Role: "candidate"}}, "SRE"},
		{"identity role", StartOptions{Identity: auth.Identity{Role: "Data Engineer"}}, "Data Engineer"},
		{"default", StartOptions{}, "candidate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.opts.request(time.Now())
			assert.Equal(t, tt.want, req.InterviewType)
			assert.Equal(t, tt.want, req.Candidate.Role)
			assert.Nil(t, req.Candidate.ResumeSummary)
			assert.NotNil(t, req.Skills)
		})
	}
}

func TestStartAvatarUnavailableIsNotFatal(t *testing.T) {
	r := newRig(t, func(r *rig, _ *Config) {
		r.backend.StartResp = &backend.StartResponse{
			InterviewID: 3,
			Questions:   []backend.Question{{QuestionID: 1, Text: "Q"}},
			AvatarError: "Tavus API error: 402 Payment Required",
		}
	})
	ctx, rec := testutil.NotifyContext(t)

	r.start(t, ctx)

	assert.Equal(t, StatusActive, r.ctrl.Status())
	assert.Equal(t, AvatarOutOfCredits, r.ctrl.Session().Avatar())
	require.True(t, rec.Has(notify.EventAvatarUnavailable))
	for _, e := range rec.Events() {
		if e.Type == notify.EventAvatarUnavailable {
			assert.Equal(t, "credits", e.Metadata["cause"])
		}
	}
}

// =============================================================================
// Transcript push
// =============================================================================

func TestUtterancesFiledUnderCurrentQuestion(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())

	for _, text := range []string{"I build services", "mostly in Go", "and some SQL"} {
		r.stream.Result(text)
	}
	r.ctrl.sync.Wait()

	answers := r.backend.CallsNamed(testutil.CallAnswer)
	require.Len(t, answers, 3)
	var texts []string
	for _, a := range answers {
		assert.Equal(t, int64(1), a.InterviewID)
		assert.Equal(t, int64(100), a.QuestionID, "answers stay on the first question")
		texts = append(texts, a.Text)
	}
	assert.ElementsMatch(t, []string{"I build services", "mostly in Go", "and some SQL"}, texts)

	view := r.ctrl.View().Snapshot()
	require.Len(t, view, 3, "optimistic echo")
	assert.Equal(t, "I build services", view[0].Text)
}

func TestUtteranceWithoutQuestionIsEchoedOnly(t *testing.T) {
	r := newRig(t, func(r *rig, _ *Config) {
		r.backend.StartResp = &backend.StartResponse{InterviewID: 2}
	})
	r.start(t, context.Background())

	r.stream.Result("hello?")
	r.ctrl.sync.Wait()

	assert.Equal(t, 0, r.backend.Count(testutil.CallAnswer))
	assert.Equal(t, 1, r.ctrl.View().Len())
}

func TestPushFailureDoesNotStopSession(t *testing.T) {
	r := newRig(t)
	r.backend.AnswerErr = errors.New("500")
	r.start(t, context.Background())

	r.stream.Result("first")
	r.stream.Result("second")
	r.ctrl.sync.Wait()

	assert.Equal(t, 2, r.backend.Count(testutil.CallAnswer))
	assert.Equal(t, StatusActive, r.ctrl.Status())
}

// =============================================================================
// Recognition
// =============================================================================

func TestRecognitionOnlyWhileActive(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())

	r.stream.End()
	assert.Equal(t, 2, r.stream.Starts(), "restart after spontaneous end")

	r.ctrl.End()
	r.wait(t)

	r.stream.End()
	assert.Equal(t, 2, r.stream.Starts(), "no restart after end")
	assert.GreaterOrEqual(t, r.stream.Stops(), 1)

	r.stream.Result("too late")
	r.ctrl.sync.Wait()
	assert.Equal(t, 0, r.backend.Count(testutil.CallAnswer))
}

func TestRecognitionFailureIsNotFatal(t *testing.T) {
	r := newRig(t)
	r.stream.StartErr = errors.New("microphone busy")

	r.start(t, context.Background())

	assert.Equal(t, StatusActive, r.ctrl.Status())
}

// =============================================================================
// End triggers
// =============================================================================

func TestEndWithRecording(t *testing.T) {
	r := newRig(t)
	ctx, rec := testutil.NotifyContext(t)
	r.start(t, ctx)

	r.ctrl.End()
	r.wait(t)

	assert.Equal(t, StatusCompleted, r.ctrl.Status())
	uploads := r.uploader.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "webm-bytes", string(uploads[0].Body))
	assert.Equal(t, 1, r.backend.Count(testutil.CallAttach))
	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
	assert.Equal(t, []string{"/results/1"}, r.nav.History())

	outcome, ok := r.ctrl.Outcome()
	require.True(t, ok)
	assert.True(t, outcome.Uploaded())
	assert.True(t, outcome.Ended)

	assert.Equal(t, []notify.EventType{
		notify.EventSessionStarted,
		notify.EventSessionFinishing,
		notify.EventRecordingUploaded,
		notify.EventSessionCompleted,
	}, rec.Types())
}

func TestRecordingKeyedToSession(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())

	r.ctrl.End()
	r.wait(t)

	uploads := r.uploader.Uploads()
	require.Len(t, uploads, 1)
	assert.True(t, strings.HasPrefix(uploads[0].Name, "interview-1-"), "name %q", uploads[0].Name)
	assert.True(t, artifact.IsRecording(uploads[0].Name))
}

func TestEndReleasesStoredRecording(t *testing.T) {
	r := newRig(t, withRetention)
	r.start(t, context.Background())

	r.ctrl.End()
	r.wait(t)

	outcome, ok := r.ctrl.Outcome()
	require.True(t, ok)
	assert.True(t, outcome.Attached)
	assert.True(t, outcome.Released)
	assert.Empty(t, r.recordings(t), "attached recording removed from disk")
}

func TestEndKeepsRecordingThatWasNotStored(t *testing.T) {
	r := newRig(t, withRetention)
	r.uploader.Err = errors.New("Invalid Signature")
	r.start(t, context.Background())

	r.ctrl.End()
	r.wait(t)

	outcome, ok := r.ctrl.Outcome()
	require.True(t, ok)
	assert.False(t, outcome.Uploaded())
	assert.False(t, outcome.Released)
	files := r.recordings(t)
	require.Len(t, files, 1, "failed upload kept for retention")
	assert.True(t, strings.HasPrefix(files[0], "interview-1-"))
}

func TestEndWithEmptyRecording(t *testing.T) {
	r := newRig(t, func(r *rig, _ *Config) { r.capture.Content = nil })
	r.start(t, context.Background())

	r.ctrl.End()
	r.wait(t)

	assert.Empty(t, r.uploader.Uploads(), "zero upload calls")
	assert.Equal(t, 0, r.backend.Count(testutil.CallSignature))
	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd), "exactly one end call")
	assert.Equal(t, StatusCompleted, r.ctrl.Status())
}

func TestEndWithoutRecording(t *testing.T) {
	r := newRig(t, func(r *rig, _ *Config) { r.capture.Err = errors.New("no camera") })
	ctx, rec := testutil.NotifyContext(t)
	r.start(t, ctx)

	assert.True(t, rec.Has(notify.EventRecordingUnavailable))
	assert.Equal(t, StatusActive, r.ctrl.Status(), "session proceeds without a recording")

	r.ctrl.End()
	r.wait(t)

	names := []string{}
	for _, c := range r.backend.Calls() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{testutil.CallStart, testutil.CallEnd}, names)
	assert.Equal(t, "/results/1", r.nav.Location())
}

func TestEndWithoutRecorder(t *testing.T) {
	r := newRig(t, func(_ *rig, cfg *Config) { cfg.Recorder = nil })
	r.start(t, context.Background())

	r.ctrl.End()
	r.wait(t)

	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
	assert.Equal(t, StatusCompleted, r.ctrl.Status())
}

func TestStatusReadableWhileDevicesStart(t *testing.T) {
	block := make(chan struct{})
	r := newRig(t, func(r *rig, _ *Config) { r.capture.Block = block })

	started := make(chan error, 1)
	go func() {
		started <- r.ctrl.Start(context.Background(), StartOptions{Identity: testutil.Candidate()})
	}()

	assert.Eventually(t, func() bool {
		return r.ctrl.Status() == StatusActive
	}, 2*time.Second, 5*time.Millisecond, "status readable during device start")
	assert.Equal(t, 0, r.capture.Begun(), "capture still starting")
	assert.Equal(t, int64(1), r.ctrl.Session().ID)

	close(block)
	require.NoError(t, <-started)
	assert.Equal(t, 1, r.capture.Begun())

	r.ctrl.End()
	r.wait(t)
	assert.Len(t, r.uploader.Uploads(), 1)
}

func TestEndWhileDevicesStart(t *testing.T) {
	block := make(chan struct{})
	r := newRig(t, func(r *rig, _ *Config) { r.capture.Block = block })

	started := make(chan error, 1)
	go func() {
		started <- r.ctrl.Start(context.Background(), StartOptions{Identity: testutil.Candidate()})
	}()
	require.Eventually(t, func() bool {
		return r.ctrl.Status() == StatusActive
	}, 2*time.Second, 5*time.Millisecond)

	r.ctrl.End()
	r.wait(t)
	close(block)
	require.NoError(t, <-started)

	assert.Empty(t, r.uploader.Uploads(), "late recording is not part of the session")
	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
	assert.Equal(t, StatusCompleted, r.ctrl.Status())

	select {
	case <-r.recorder.Stopped():
	case <-time.After(5 * time.Second):
		t.Fatal("late recorder was not stopped")
	}
}

func TestEndBeforeStartDoesNothing(t *testing.T) {
	r := newRig(t)

	r.ctrl.End()

	assert.Empty(t, r.backend.Calls())
	assert.Equal(t, StatusNotStarted, r.ctrl.Status())
}

func TestEndTwice(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())

	r.ctrl.End()
	r.ctrl.End()
	r.wait(t)
	r.ctrl.End()

	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
	assert.Len(t, r.uploader.Uploads(), 1)
	assert.Equal(t, StatusCompleted, r.ctrl.Status())
}

func TestRecorderStopSettlingTriggersFinalize(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())

	r.recorder.Stop()
	r.wait(t)

	assert.Equal(t, StatusCompleted, r.ctrl.Status())
	assert.Len(t, r.uploader.Uploads(), 1)
	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
}

func TestUnload(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())

	select {
	case <-r.ctrl.Unload():
	case <-time.After(5 * time.Second):
		t.Fatal("unload request never returned")
	}

	assert.Equal(t, StatusCompleted, r.ctrl.Status())
	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
	assert.Empty(t, r.uploader.Uploads(), "unload does not upload")
	assert.Empty(t, r.nav.History(), "unload does not navigate")
	assert.GreaterOrEqual(t, r.stream.Stops(), 1)

	// The recorder's settle after unload must not start a second finalize.
	<-r.recorder.Stopped()
	r.ctrl.End()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
}

func TestUnloadBeforeStart(t *testing.T) {
	r := newRig(t)

	select {
	case <-r.ctrl.Unload():
	default:
		t.Fatal("Unload() before start should return a closed channel")
	}
	assert.Empty(t, r.backend.Calls())
}

func TestUnloadAfterCompletion(t *testing.T) {
	r := newRig(t)
	r.start(t, context.Background())
	r.ctrl.End()
	r.wait(t)

	<-r.ctrl.Unload()

	assert.Equal(t, 1, r.backend.Count(testutil.CallEnd))
	assert.Equal(t, StatusCompleted, r.ctrl.Status())
}

func TestUnloadEndFailureStaysJournaled(t *testing.T) {
	db, err := store.Open(store.DefaultDBPath(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := newRig(t, func(_ *rig, cfg *Config) { cfg.Journal = db })
	r.backend.EndErr = errors.New("connection reset")
	r.start(t, context.Background())

	<-r.ctrl.Unload()

	assert.Equal(t, StatusCompleted, r.ctrl.Status())
	entry, err := db.Session(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFinishing, entry.Status, "left for the recovery sweep")
}

func TestFinalizeRunsOnceUnderRacingTriggers(t *testing.T) {
	for i := 0; i < 25; i++ {
		r := newRig(t)
		r.start(t, context.Background())

		var wg sync.WaitGroup
		wg.Add(3)
		go func() { defer wg.Done(); r.ctrl.End() }()
		go func() { defer wg.Done(); r.ctrl.Unload() }()
		go func() { defer wg.Done(); r.ctrl.End() }()
		wg.Wait()
		r.wait(t)

		require.Equal(t, 1, r.backend.Count(testutil.CallEnd), "iteration %d: one end call", i)
		uploads := len(r.uploader.Uploads())
		require.LessOrEqual(t, uploads, 1, "iteration %d", i)
		require.Equal(t, uploads, r.backend.Count(testutil.CallAttach), "iteration %d: one patch per upload", i)
		require.Equal(t, StatusCompleted, r.ctrl.Status())
	}
}

// =============================================================================
// Journal and export
// =============================================================================

func TestJournalTracksLifecycle(t *testing.T) {
	db, err := store.Open(store.DefaultDBPath(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := newRig(t, func(_ *rig, cfg *Config) { cfg.Journal = db })
	ctx := context.Background()
	r.start(t, ctx)

	entry, err := db.Session(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, entry.Status)

	r.ctrl.End()
	r.wait(t)

	entry, err = db.Session(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, entry.Status)
	assert.True(t, strings.HasPrefix(entry.RecordingURL, "https://res.example.com/"))

	open, err := db.Unfinished(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestTranscriptExport(t *testing.T) {
	dir := t.TempDir()
	r := newRig(t, func(_ *rig, cfg *Config) { cfg.TranscriptDir = dir })
	r.backend.QueueTranscript(
		backend.TranscriptEntry{Sender: "AI", Text: "Tell me about yourself.", Timestamp: "2026-03-01T10:00:00"},
		backend.TranscriptEntry{Sender: "User", Text: "I build backends.", Timestamp: "2026-03-01T10:00:05"},
	)
	r.start(t, context.Background())

	r.ctrl.End()
	r.wait(t)

	data, err := os.ReadFile(filepath.Join(dir, "1.md"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# Interview 1")
	assert.Contains(t, out, "Tell me about yourself.")
	assert.Contains(t, out, "I build backends.")
}
