package testutil

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/capture"
	"github.com/randalmurphal/interviewroom/notify"
	"github.com/randalmurphal/interviewroom/recognition"
	"github.com/randalmurphal/interviewroom/storage"
)

// =============================================================================
// Backend
// =============================================================================

// Backend call names recorded by FakeBackend.
const (
	CallStart      = "start"
	CallAnswer     = "answer"
	CallTranscript = "transcript"
	CallSignature  = "signature"
	CallAttach     = "attach"
	CallEnd        = "end"
)

// Call is one recorded backend call.
type Call struct {
	Name        string
	InterviewID int64
	QuestionID  int64
	Text        string
}

// FakeBackend is an in-memory interview API. The zero value answers every
// call successfully with empty data. EndInterview is idempotent.
type FakeBackend struct {
	mu sync.Mutex

	StartResp     *backend.StartResponse
	StartErr      error
	AnswerErr     error
	TranscriptErr error
	SignatureResp *backend.UploadSignature
	SignatureErr  error
	AttachErr     error
	EndErr        error

	// TranscriptFunc, when set, replaces the canned transcript responses.
	TranscriptFunc func(ctx context.Context, interviewID int64) (*backend.TranscriptResponse, error)

	// BeforeEnd, when set, runs at the start of every EndInterview call.
	BeforeEnd func()

	transcripts [][]backend.TranscriptEntry
	calls       []Call
}

// QueueTranscript adds a canned transcript response. Responses are served
// in order and the last one repeats.
func (f *FakeBackend) QueueTranscript(entries ...backend.TranscriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, entries)
}

func (f *FakeBackend) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// StartInterview implements the start call.
func (f *FakeBackend) StartInterview(_ context.Context, req backend.StartRequest) (*backend.StartResponse, error) {
	f.record(Call{Name: CallStart, Text: req.InterviewType})
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	if f.StartResp == nil {
		return StartResponse(1, "Tell me about yourself."), nil
	}
	resp := *f.StartResp
	return &resp, nil
}

// SubmitAnswer implements the answer update.
func (f *FakeBackend) SubmitAnswer(_ context.Context, interviewID, questionID int64, text string) error {
	f.record(Call{Name: CallAnswer, InterviewID: interviewID, QuestionID: questionID, Text: text})
	return f.AnswerErr
}

// Transcript implements the transcript pull.
func (f *FakeBackend) Transcript(ctx context.Context, interviewID int64) (*backend.TranscriptResponse, error) {
	f.record(Call{Name: CallTranscript, InterviewID: interviewID})
	if f.TranscriptFunc != nil {
		return f.TranscriptFunc(ctx, interviewID)
	}
	if f.TranscriptErr != nil {
		return nil, f.TranscriptErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transcripts) == 0 {
		return &backend.TranscriptResponse{}, nil
	}
	entries := f.transcripts[0]
	if len(f.transcripts) > 1 {
		f.transcripts = f.transcripts[1:]
	}
	return &backend.TranscriptResponse{Transcript: append([]backend.TranscriptEntry(nil), entries...)}, nil
}

// UploadSignature implements the signed-upload credential call.
func (f *FakeBackend) UploadSignature(context.Context) (*backend.UploadSignature, error) {
	f.record(Call{Name: CallSignature})
	if f.SignatureErr != nil {
		return nil, f.SignatureErr
	}
	if f.SignatureResp == nil {
		return Signature(), nil
	}
	sig := *f.SignatureResp
	return &sig, nil
}

// AttachRecording implements the recording PATCH.
func (f *FakeBackend) AttachRecording(_ context.Context, interviewID int64, url string) error {
	f.record(Call{Name: CallAttach, InterviewID: interviewID, Text: url})
	return f.AttachErr
}

// EndInterview implements the end-session call.
func (f *FakeBackend) EndInterview(_ context.Context, interviewID int64) (*backend.EndResponse, error) {
	if f.BeforeEnd != nil {
		f.BeforeEnd()
	}
	f.record(Call{Name: CallEnd, InterviewID: interviewID})
	if f.EndErr != nil {
		return nil, f.EndErr
	}
	return &backend.EndResponse{Status: "Interview marked as completed"}, nil
}

// Calls returns every recorded call in order.
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many calls named name were made.
func (f *FakeBackend) Count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

// CallsNamed returns the recorded calls named name.
func (f *FakeBackend) CallsNamed(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// Storage
// =============================================================================

// Upload is one recorded upload.
type Upload struct {
	Name  string
	Body  []byte
	Creds storage.Credentials
}

// FakeUploader records uploads and answers with URL.
type FakeUploader struct {
	mu      sync.Mutex
	URL     string
	Err     error
	uploads []Upload
}

// Upload implements finalize.Uploader.
func (u *FakeUploader) Upload(_ context.Context, creds storage.Credentials, name string, r io.Reader) (*storage.Result, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads = append(u.uploads, Upload{Name: name, Body: body, Creds: creds})
	if u.Err != nil {
		return nil, u.Err
	}
	url := u.URL
	if url == "" {
		url = "https://res.example.com/demo/interviews/" + name
	}
	return &storage.Result{SecureURL: url, Bytes: int64(len(body))}, nil
}

// Uploads returns the recorded uploads.
func (u *FakeUploader) Uploads() []Upload {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Upload(nil), u.uploads...)
}

// =============================================================================
// Navigation
// =============================================================================

// Navigator records navigation.
type Navigator struct {
	mu       sync.Mutex
	location string
	history  []string
}

// NewNavigator returns a navigator starting at location.
func NewNavigator(location string) *Navigator {
	return &Navigator{location: location}
}

// Navigate moves to path.
func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
	n.history = append(n.history, path)
}

// Location returns the current path.
func (n *Navigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// History returns every path navigated to, in order.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

// =============================================================================
// Recognition
// =============================================================================

// FakeStream is a scriptable recognition.Stream. Tests drive it with
// Result, Fail, and End.
type FakeStream struct {
	mu       sync.Mutex
	handlers recognition.Handlers
	starts   int
	stops    int
	StartErr error
}

// SetHandlers implements recognition.Stream.
func (s *FakeStream) SetHandlers(h recognition.Handlers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = h
}

// Start implements recognition.Stream.
func (s *FakeStream) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return s.StartErr
}

// Stop implements recognition.Stream.
func (s *FakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

// Result delivers a recognized utterance.
func (s *FakeStream) Result(text string) {
	if h := s.snapshot(); h.OnResult != nil {
		h.OnResult(text)
	}
}

// Fail delivers an engine error.
func (s *FakeStream) Fail(err error) {
	if h := s.snapshot(); h.OnError != nil {
		h.OnError(err)
	}
}

// End signals a spontaneous end-of-stream.
func (s *FakeStream) End() {
	if h := s.snapshot(); h.OnEnd != nil {
		h.OnEnd()
	}
}

// Starts returns how many times Start was called.
func (s *FakeStream) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Stops returns how many times Stop was called.
func (s *FakeStream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func (s *FakeStream) snapshot() recognition.Handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers
}

// =============================================================================
// Capture
// =============================================================================

// FakeCapture is a capture.MediaCapture that writes Content to the
// destination when stopped.
type FakeCapture struct {
	Content []byte
	Err     error

	// Block, when set, holds Begin until it is closed.
	Block chan struct{}

	mu    sync.Mutex
	begun int
}

// Begin implements capture.MediaCapture.
func (c *FakeCapture) Begin(_ context.Context, dst string) (capture.Handle, error) {
	if c.Block != nil {
		<-c.Block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.begun++
	return &fakeHandle{dst: dst, content: c.Content}, nil
}

// Begun returns how many captures were started.
func (c *FakeCapture) Begun() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.begun
}

type fakeHandle struct {
	dst     string
	content []byte
}

func (h *fakeHandle) Stop() error {
	return os.WriteFile(h.dst, h.content, 0o644)
}

// =============================================================================
// Notifications
// =============================================================================

// RecordingNotifier keeps every event it receives.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

// Notify implements notify.Notifier.
func (n *RecordingNotifier) Notify(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

// Events returns the received events.
func (n *RecordingNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// Types returns the received event types in order.
func (n *RecordingNotifier) Types() []notify.EventType {
	var out []notify.EventType
	for _, e := range n.Events() {
		out = append(out, e.Type)
	}
	return out
}

// Has reports whether an event of type t was received.
func (n *RecordingNotifier) Has(t notify.EventType) bool {
	for _, e := range n.Events() {
		if e.Type == t {
			return true
		}
	}
	return false
}
