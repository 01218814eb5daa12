package recognition

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeStream records Start/Stop calls and lets tests raise engine events.
type fakeStream struct {
	mu       sync.Mutex
	handlers Handlers
	starts   int
	stops    int
	startErr error
}

func (f *fakeStream) SetHandlers(h Handlers) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = h
}

func (f *fakeStream) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeStream) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeStream) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func (f *fakeStream) h() Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdapterRestartsOnSpontaneousEnd(t *testing.T) {
	stream := &fakeStream{}
	a := NewAdapter(stream, WithLogger(quietLogger()))

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stream.h().OnEnd()

	starts, _ := stream.counts()
	if starts != 2 {
		t.Errorf("starts = %d, want 2 (initial + restart)", starts)
	}
	if a.restartCount() != 1 {
		t.Errorf("restartCount() = %d, want 1", a.restartCount())
	}
	if !a.Listening() {
		t.Error("Listening() = false after restart")
	}
}

func TestAdapterNoRestartAfterStop(t *testing.T) {
	stream := &fakeStream{}
	a := NewAdapter(stream, WithLogger(quietLogger()))

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	stream.h().OnEnd()

	starts, stops := stream.counts()
	if starts != 1 {
		t.Errorf("starts = %d, want 1 (no restart)", starts)
	}
	if stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
	if a.restartCount() != 0 {
		t.Errorf("restartCount() = %d, want 0", a.restartCount())
	}
}

func TestAdapterNoRestartAfterContextCancel(t *testing.T) {
	stream := &fakeStream{}
	a := NewAdapter(stream, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	stream.h().OnEnd()

	if starts, _ := stream.counts(); starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}
	if a.Listening() {
		t.Error("Listening() = true after context cancel")
	}
}

func TestAdapterStartIdempotent(t *testing.T) {
	stream := &fakeStream{}
	a := NewAdapter(stream)

	_ = a.Start(context.Background())
	_ = a.Start(context.Background())

	if starts, _ := stream.counts(); starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}
}

func TestAdapterStartError(t *testing.T) {
	stream := &fakeStream{startErr: errors.New("no microphone")}
	a := NewAdapter(stream)

	if err := a.Start(context.Background()); err == nil {
		t.Fatal("Start() should return the engine error")
	}
	if a.Listening() {
		t.Error("Listening() = true after failed start")
	}
}

func TestAdapterResults(t *testing.T) {
	stream := &fakeStream{}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewAdapter(stream, WithClock(func() time.Time { return at }))

	var got []Result
	a.OnUtterance(func(r Result) { got = append(got, r) })

	// Before Start results are dropped.
	stream.h().OnResult("early")

	_ = a.Start(context.Background())
	stream.h().OnResult("  I have five years of experience  ")
	stream.h().OnResult("   ")
	stream.h().OnResult("")

	_ = a.Stop()
	stream.h().OnResult("late")

	if len(got) != 1 {
		t.Fatalf("results = %+v, want exactly one", got)
	}
	if got[0].Text != "I have five years of experience" {
		t.Errorf("Text = %q", got[0].Text)
	}
	if !got[0].At.Equal(at) {
		t.Errorf("At = %v, want %v", got[0].At, at)
	}
}

func TestAdapterErrors(t *testing.T) {
	var logs bytes.Buffer
	stream := &fakeStream{}
	a := NewAdapter(stream, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	_ = a.Start(context.Background())

	stream.h().OnError(ErrNoSpeech)
	if logs.Len() != 0 {
		t.Errorf("no-speech should not be logged, got %q", logs.String())
	}

	stream.h().OnError(errors.New("network"))
	if !strings.Contains(logs.String(), "recognition error") {
		t.Errorf("expected warning log, got %q", logs.String())
	}
	if !a.Listening() {
		t.Error("errors must not stop the stream")
	}
}

// sttServer is a minimal streaming endpoint: it reads one audio frame, then
// replays the scripted messages.
func sttServer(t *testing.T, script []string, frames chan<- []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt == websocket.BinaryMessage && frames != nil {
			frames <- data
		}

		for _, msg := range script {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		// Drain until the client closes.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// blockingAudio yields one frame and then blocks until closed.
func blockingAudio(frame []byte) AudioSource {
	return AudioSourceFunc(func(context.Context) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			_, _ = pw.Write(frame)
		}()
		return pr, nil
	})
}

func TestWebSocketStream(t *testing.T) {
	frames := make(chan []byte, 1)
	server := sttServer(t, []string{
		`{"type":"transcript","text":"partial","is_final":false}`,
		`{"type":"transcript","text":"I led the migration","is_final":true}`,
		`{"type":"error","error":"no_speech"}`,
		`{"type":"done"}`,
	}, frames)
	defer server.Close()

	stream := NewWebSocketStream(WebSocketConfig{
		URL:    wsURL(server),
		Logger: quietLogger(),
	}, blockingAudio([]byte{1, 2, 3, 4}))

	var mu sync.Mutex
	var results []string
	var errs []error
	ended := make(chan struct{})
	stream.SetHandlers(Handlers{
		OnResult: func(text string) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, text)
		},
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, err)
		},
		OnEnd: func() { close(ended) },
	})

	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case got := <-frames:
		if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
			t.Errorf("audio frame = %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received audio")
	}

	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("OnEnd not called after server done")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0] != "I led the migration" {
		t.Errorf("results = %v, want only the final transcript", results)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrNoSpeech) {
		t.Errorf("errors = %v, want [ErrNoSpeech]", errs)
	}
}

func TestWebSocketStreamStopDoesNotFireEnd(t *testing.T) {
	server := sttServer(t, nil, nil)
	defer server.Close()

	stream := NewWebSocketStream(WebSocketConfig{
		URL:    wsURL(server),
		Logger: quietLogger(),
	}, blockingAudio([]byte{0}))

	ended := make(chan struct{}, 1)
	stream.SetHandlers(Handlers{OnEnd: func() { ended <- struct{}{} }})

	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := stream.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-ended:
		t.Error("OnEnd fired after explicit Stop")
	case <-time.After(200 * time.Millisecond):
	}

	// Stop twice is harmless.
	if err := stream.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWebSocketStreamDialError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	stream := NewWebSocketStream(WebSocketConfig{URL: wsURL(server)}, blockingAudio(nil))
	err := stream.Start(context.Background())
	if err == nil {
		t.Fatal("Start() should fail on rejected handshake")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestAdapterOverWebSocketRestarts(t *testing.T) {
	server := sttServer(t, []string{`{"type":"done"}`}, nil)
	defer server.Close()

	stream := NewWebSocketStream(WebSocketConfig{
		URL:    wsURL(server),
		Logger: quietLogger(),
	}, blockingAudio([]byte{9}))
	a := NewAdapter(stream, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for a.restartCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.restartCount() < 2 {
		t.Fatalf("restartCount() = %d, want at least 2", a.restartCount())
	}

	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
