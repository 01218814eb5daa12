package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/interviewroom/auth"
	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/notify"
	"github.com/randalmurphal/interviewroom/recognition"
	"github.com/randalmurphal/interviewroom/storage"
)

func TestAccessToken(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := AccessToken(t, 42, exp)

	claims, err := auth.ParseAccessToken(token, time.Now())
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, want 42", claims.Subject)
	}
}

func TestSession(t *testing.T) {
	s := Session(t)
	if !s.Active() {
		t.Error("Session() not active")
	}
	if s.Identity() != Candidate() {
		t.Errorf("Identity() = %+v", s.Identity())
	}
}

func TestStartResponse(t *testing.T) {
	resp := StartResponse(5, "Q1", "Q2")
	if resp.InterviewID != 5 || len(resp.Questions) != 2 {
		t.Fatalf("StartResponse() = %+v", resp)
	}
	if resp.Questions[1].QuestionID != 101 {
		t.Errorf("second question id = %d, want 101", resp.Questions[1].QuestionID)
	}
}

func TestFakeBackendTranscriptQueue(t *testing.T) {
	f := &FakeBackend{}
	ctx := context.Background()

	f.QueueTranscript(backend.TranscriptEntry{Sender: "AI", Text: "one"})
	f.QueueTranscript(backend.TranscriptEntry{Sender: "AI", Text: "two"})

	for _, want := range []string{"one", "two", "two"} {
		resp, err := f.Transcript(ctx, 1)
		if err != nil {
			t.Fatalf("Transcript() error = %v", err)
		}
		if got := resp.Transcript[0].Text; got != want {
			t.Errorf("Transcript() = %q, want %q", got, want)
		}
	}
	if f.Count(CallTranscript) != 3 {
		t.Errorf("Count(transcript) = %d, want 3", f.Count(CallTranscript))
	}
}

func TestFakeBackendEndIsIdempotent(t *testing.T) {
	f := &FakeBackend{}
	for i := 0; i < 2; i++ {
		if _, err := f.EndInterview(context.Background(), 3); err != nil {
			t.Fatalf("EndInterview() #%d error = %v", i+1, err)
		}
	}
	if got := len(f.CallsNamed(CallEnd)); got != 2 {
		t.Errorf("end calls = %d, want 2", got)
	}
}

func TestFakeUploader(t *testing.T) {
	u := &FakeUploader{}
	res, err := u.Upload(context.Background(), storage.Credentials{CloudName: "demo"}, "a.webm", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasSuffix(res.SecureURL, "a.webm") || res.Bytes != 4 {
		t.Errorf("Upload() = %+v", res)
	}

	u.Err = errors.New("boom")
	if _, err := u.Upload(context.Background(), storage.Credentials{CloudName: "demo"}, "b.webm", strings.NewReader("")); err == nil {
		t.Error("Upload() with Err should fail")
	}
	if len(u.Uploads()) != 2 {
		t.Errorf("Uploads() = %d, want 2", len(u.Uploads()))
	}
}

func TestNavigator(t *testing.T) {
	n := NewNavigator("/interview")
	n.Navigate("/results/1")
	if n.Location() != "/results/1" {
		t.Errorf("Location() = %q", n.Location())
	}
	if h := n.History(); len(h) != 1 || h[0] != "/results/1" {
		t.Errorf("History() = %v", h)
	}
}

func TestFakeStreamDrivesAdapter(t *testing.T) {
	s := &FakeStream{}
	a := recognition.NewAdapter(s)

	var got []string
	a.OnUtterance(func(r recognition.Result) { got = append(got, r.Text) })

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Result("hello")
	s.End()

	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("utterances = %v", got)
	}
	if s.Starts() != 2 {
		t.Errorf("Starts() = %d, want 2 after restart", s.Starts())
	}
}

func TestFakeCapture(t *testing.T) {
	c := &FakeCapture{Content: []byte("video")}
	dst := filepath.Join(t.TempDir(), "out.webm")

	h, err := c.Begin(context.Background(), dst)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "video" {
		t.Errorf("artifact = %q, %v", data, err)
	}
	if c.Begun() != 1 {
		t.Errorf("Begun() = %d", c.Begun())
	}
}

func TestNotifyContext(t *testing.T) {
	ctx, rec := NotifyContext(t)
	notify.Emit(ctx, notify.Event{Type: notify.EventSessionStarted})

	if !rec.Has(notify.EventSessionStarted) {
		t.Errorf("Types() = %v", rec.Types())
	}
}

func TestEventually(t *testing.T) {
	start := time.Now()
	Eventually(t, time.Second, func() bool { return time.Since(start) > 20*time.Millisecond }, "elapsed")
}
