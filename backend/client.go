// Package backend is a typed client for the interview backend REST API.
//
// Every request carries the candidate's bearer token, attached by an
// oauth2 static token source, and a fresh X-Request-Id.
//
//	c := backend.New(backend.Config{BaseURL: cfg.APIURL, Token: sess.Token()})
//	started, err := c.StartInterview(ctx, req)
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/randalmurphal/interviewroom/auth"
	ihttp "github.com/randalmurphal/interviewroom/http"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, e.g. "http://localhost:8000".
	BaseURL string

	// Token is the bearer token. Empty for unauthenticated calls (login).
	Token string

	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration

	// MaxRetries is the number of attempts per request. Zero means one.
	MaxRetries int

	// HTTPClient is the base client to wrap. Mostly for tests.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client calls the interview backend.
type Client struct {
	http   *ihttp.Client
	logger *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	copied := *base
	hc := &copied
	if cfg.Token != "" {
		// oauth2 picks up the base client's transport from the context.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
	}
	hc.Timeout = cfg.Timeout

	logger.Debug("backend client configured",
		"base_url", cfg.BaseURL,
		"token", auth.Fingerprint(cfg.Token),
		"timeout", cfg.Timeout)

	return &Client{
		http: ihttp.NewClient(ihttp.ClientConfig{
			Client:      hc,
			BaseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
			ServiceName: "backend",
			MaxRetries:  cfg.MaxRetries,
		}),
		logger: logger,
	}
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.http.BaseURL()
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.http.Post(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &resp, nil
}

// Profile fetches the signed-in candidate's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.http.Get(ctx, "/api/profile/me", &p); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// StartInterview creates an interview session.
func (c *Client) StartInterview(ctx context.Context, req StartRequest) (*StartResponse, error) {
	var resp StartResponse
	if err := c.http.Post(ctx, "/api/interview/start", req, &resp); err != nil {
		return nil, fmt.Errorf("start interview: %w", err)
	}
	return &resp, nil
}

// SubmitAnswer sends an answer update for a question.
func (c *Client) SubmitAnswer(ctx context.Context, interviewID, questionID int64, text string) error {
	path := fmt.Sprintf("/api/interview/%d/questions/%d/answer", interviewID, questionID)
	if err := c.http.Post(ctx, path, AnswerRequest{AnswerText: text}, nil); err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	return nil
}

// Transcript fetches the authoritative live transcript.
func (c *Client) Transcript(ctx context.Context, interviewID int64) (*TranscriptResponse, error) {
	var resp TranscriptResponse
	if err := c.http.Get(ctx, fmt.Sprintf("/api/interview/%d/transcript", interviewID), &resp); err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return &resp, nil
}

// UploadSignature fetches signed-upload credentials for the recording.
func (c *Client) UploadSignature(ctx context.Context) (*UploadSignature, error) {
	var sig UploadSignature
	if err := c.http.Get(ctx, "/api/interview/signature", &sig); err != nil {
		return nil, fmt.Errorf("get upload signature: %w", err)
	}
	return &sig, nil
}

// AttachRecording records the uploaded recording's URL on the session.
func (c *Client) AttachRecording(ctx context.Context, interviewID int64, url string) error {
	path := fmt.Sprintf("/api/interview/%d/recording", interviewID)
	if err := c.http.Patch(ctx, path, RecordingRequest{RecordingURL: url}, nil); err != nil {
		return fmt.Errorf("attach recording: %w", err)
	}
	return nil
}

// EndInterview marks the session completed. The backend treats repeated
// calls as no-ops.
func (c *Client) EndInterview(ctx context.Context, interviewID int64) (*EndResponse, error) {
	var resp EndResponse
	if err := c.http.Post(ctx, fmt.Sprintf("/api/interview/%d/end", interviewID), struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("end interview: %w", err)
	}
	return &resp, nil
}

// Summary fetches the scored result of a finished interview.
func (c *Client) Summary(ctx context.Context, interviewID int64) (*Summary, error) {
	var s Summary
	if err := c.http.Get(ctx, fmt.Sprintf("/api/interview/%d/summary", interviewID), &s); err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return &s, nil
}
