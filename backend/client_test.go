package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ihttp "github.com/randalmurphal/interviewroom/http"
	"github.com/randalmurphal/interviewroom/transcript"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestClientAttachesBearerToken(t *testing.T) {
	server, calls := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"transcript":[]}`))
	})

	c := New(Config{BaseURL: server.URL + "/", Token: "tok-123"})
	if _, err := c.Transcript(context.Background(), 9); err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}

	got := (*calls)[0]
	if got.auth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", got.auth, "Bearer tok-123")
	}
	if got.path != "/api/interview/9/transcript" {
		t.Errorf("path = %q", got.path)
	}
}

func TestClientLoginWithoutToken(t *testing.T) {
	server, calls := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer",
			"user":{"user_id":3,"name":"Ada","email":"ada@example.com","role":"candidate"}}`))
	})

	c := New(Config{BaseURL: server.URL})
	resp, err := c.Login(context.Background(), "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.AccessToken != "abc" || resp.User.UserID != 3 || resp.User.Email != "ada@example.com" {
		t.Errorf("Login() = %+v", resp)
	}

	got := (*calls)[0]
	if got.auth != "" {
		t.Errorf("login sent Authorization %q", got.auth)
	}
	if got.body["email"] != "ada@example.com" || got.body["password"] != "pw" {
		t.Errorf("login body = %v", got.body)
	}
}

func TestClientStartInterview(t *testing.T) {
	server, calls := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"interview_id": 17,
			"questions": [{"question_id": 101, "text": "Tell me about yourself."}],
			"conversation_url": null,
			"tavus_error": "Tavus API error: 402 out of conversational credits"
		}`))
	})

	c := New(Config{BaseURL: server.URL, Token: "t"})
	summary := "Backend engineer"
	now := time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)
	req := NewStartRequest(Candidate{
		Name: "Ada", Email: "ada@example.com", Role: "Backend Engineer", ResumeSummary: &summary,
	}, "Backend Engineer", nil, now)

	resp, err := c.StartInterview(context.Background(), req)
	if err != nil {
		t.Fatalf("StartInterview() error = %v", err)
	}
	if resp.InterviewID != 17 || len(resp.Questions) != 1 || resp.Questions[0].QuestionID != 101 {
		t.Errorf("StartInterview() = %+v", resp)
	}
	if resp.ConversationURL != "" {
		t.Errorf("ConversationURL = %q, want empty for null", resp.ConversationURL)
	}
	if resp.AvatarError == "" {
		t.Error("AvatarError not decoded from tavus_error")
	}

	body := (*calls)[0].body
	if body["date"] != "2026-03-01" || body["time"] != "14:05:09" {
		t.Errorf("date/time = %v %v", body["date"], body["time"])
	}
	if body["interviewer_id"] != float64(1) {
		t.Errorf("interviewer_id = %v", body["interviewer_id"])
	}
	if body["interview_type"] != "Backend Engineer" {
		t.Errorf("interview_type = %v", body["interview_type"])
	}
	if skills, ok := body["skills"].([]any); !ok || len(skills) != 0 {
		t.Errorf("skills = %v, want empty list", body["skills"])
	}
	cand, _ := body["candidate"].(map[string]any)
	if cand["resume_summary"] != "Backend engineer" || cand["email"] != "ada@example.com" {
		t.Errorf("candidate = %v", cand)
	}
}

func TestClientSubmitAnswer(t *testing.T) {
	server, calls := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"interview_id":1,"question_id":2}`))
	})

	c := New(Config{BaseURL: server.URL, Token: "t"})
	if err := c.SubmitAnswer(context.Background(), 1, 2, "I like Go"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/api/interview/1/questions/2/answer" {
		t.Errorf("request = %s %s", got.method, got.path)
	}
	if got.body["answer_text"] != "I like Go" {
		t.Errorf("body = %v", got.body)
	}
}

func TestClientFinalizeCalls(t *testing.T) {
	server, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/interview/signature":
			_, _ = w.Write([]byte(`{"api_key":"k","timestamp":1767225600,"signature":"s","folder":"interviews","cloud_name":"demo"}`))
		case "/api/interview/4/recording":
			_, _ = w.Write([]byte(`{"status":"updated"}`))
		case "/api/interview/4/end":
			_, _ = w.Write([]byte(`{"status":"Interview marked as completed","transcript":"Interviewer: hi"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	c := New(Config{BaseURL: server.URL, Token: "t"})
	ctx := context.Background()

	sig, err := c.UploadSignature(ctx)
	if err != nil {
		t.Fatalf("UploadSignature() error = %v", err)
	}
	if !sig.Valid() || sig.Timestamp != 1767225600 || sig.CloudName != "demo" {
		t.Errorf("UploadSignature() = %+v", sig)
	}

	if err := c.AttachRecording(ctx, 4, "https://cdn/v.webm"); err != nil {
		t.Fatalf("AttachRecording() error = %v", err)
	}

	end, err := c.EndInterview(ctx, 4)
	if err != nil {
		t.Fatalf("EndInterview() error = %v", err)
	}
	if end.Status == "" {
		t.Error("EndInterview() status empty")
	}

	patch := (*calls)[1]
	if patch.method != http.MethodPatch || patch.body["recording_url"] != "https://cdn/v.webm" {
		t.Errorf("patch = %+v", patch)
	}
	if (*calls)[2].method != http.MethodPost {
		t.Errorf("end method = %s", (*calls)[2].method)
	}
}

func TestClientErrors(t *testing.T) {
	server, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Interview not found"}`))
	})

	c := New(Config{BaseURL: server.URL, Token: "t"})
	_, err := c.EndInterview(context.Background(), 99)
	if !ihttp.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
	var apiErr *ihttp.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Interview not found" {
		t.Errorf("error = %v, want APIError with detail", err)
	}
}

func TestClientSummary(t *testing.T) {
	server, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"interview_id": 4,
			"overall_score": 82,
			"items": [{"question":"Q1","answer":"A1","relevance_score":8,"confidence_level":null}],
			"completed_at": "2026-03-01T10:00:00Z",
			"recording_url": "https://cdn/v.webm"
		}`))
	})

	c := New(Config{BaseURL: server.URL, Token: "t"})
	s, err := c.Summary(context.Background(), 4)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if s.OverallScore == nil || *s.OverallScore != 82 {
		t.Errorf("OverallScore = %v", s.OverallScore)
	}
	if len(s.Items) != 1 || s.Items[0].ConfidenceLevel != nil || *s.Items[0].RelevanceScore != 8 {
		t.Errorf("Items = %+v", s.Items)
	}
	if s.CompletedAt == nil {
		t.Error("CompletedAt not decoded")
	}
}

func TestTranscriptResponseUtterances(t *testing.T) {
	resp := TranscriptResponse{Transcript: []TranscriptEntry{
		{Sender: "AI", Text: "Hello", Timestamp: "2026-03-01T10:00:00.123456"},
		{Sender: "User", Text: "Hi", Timestamp: "2026-03-01T10:00:03Z"},
		{Sender: "User", Text: "again", Timestamp: "garbage"},
	}}

	got := resp.Utterances()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Speaker != transcript.SpeakerAI || got[1].Speaker != transcript.SpeakerCandidate {
		t.Errorf("speakers = %v %v", got[0].Speaker, got[1].Speaker)
	}
	if got[0].At.IsZero() || got[1].At.IsZero() {
		t.Error("valid timestamps not parsed")
	}
	if !got[2].At.IsZero() {
		t.Error("bad timestamp should be zero")
	}
}
