// Package testutil provides test doubles and fixtures for the interview
// client packages.
package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/randalmurphal/interviewroom/auth"
	"github.com/randalmurphal/interviewroom/backend"
)

// signingKey stands in for the backend's secret. The client never
// verifies signatures, so any key works.
var signingKey = []byte("testutil-signing-key")

// Candidate returns a complete identity.
func Candidate() auth.Identity {
	return auth.Identity{
		UserID: 7,
		Name:   "Ada Lovelace",
		Email:  "ada@example.com",
		Role:   "Backend Engineer",
	}
}

// AccessToken signs an HS256 access token for userID expiring at exp.
func AccessToken(t *testing.T, userID int64, exp time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	return token
}

// Session returns an initialized auth session for Candidate.
func Session(t *testing.T) *auth.Session {
	t.Helper()

	now := time.Now()
	s, err := auth.NewSession(AccessToken(t, Candidate().UserID, now.Add(time.Hour)), Candidate(), now)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

// StartResponse returns a start response for interviewID with the given
// question texts. Question ids start at 100.
func StartResponse(interviewID int64, questions ...string) *backend.StartResponse {
	resp := &backend.StartResponse{
		InterviewID:     interviewID,
		ConversationURL: "https://avatar.example.com/c/" + strconv.FormatInt(interviewID, 10),
	}
	for i, q := range questions {
		resp.Questions = append(resp.Questions, backend.Question{
			QuestionID: int64(100 + i),
			Text:       q,
		})
	}
	return resp
}

// Signature returns a complete upload signature.
func Signature() *backend.UploadSignature {
	return &backend.UploadSignature{
		APIKey:    "key",
		Timestamp: 1767225600,
		Signature: "sig",
		Folder:    "interviews",
		CloudName: "demo",
	}
}

// TempFile creates a file with content in a test temp dir and returns
// its path.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to create temp file %s: %v", name, err)
	}
	return path
}
