package interview

import (
	"sync/atomic"
	"time"

	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/finalize"
)

// Status is where a session is in its lifecycle.
type Status string

// Lifecycle states. Completed is terminal.
const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusFinishing  Status = "finishing"
	StatusCompleted  Status = "completed"
)

// Question is one interview question. Immutable once issued.
type Question struct {
	ID   int64
	Text string
}

// Session is one candidate's interview attempt.
type Session struct {
	ID        int64
	Questions []Question

	// Current indexes Questions. No question-boundary detection exists, so
	// it stays on the first question for the whole session.
	Current int

	Status Status

	// ConversationURL is the avatar embed. Empty when the avatar is
	// unavailable, in which case AvatarError explains why.
	ConversationURL string
	AvatarError     string

	PriorRecordingURL string
	StartedAt         time.Time
}

func newSession(resp *backend.StartResponse, startedAt time.Time) Session {
	s := Session{
		ID:                resp.InterviewID,
		Status:            StatusActive,
		ConversationURL:   resp.ConversationURL,
		AvatarError:       resp.AvatarError,
		PriorRecordingURL: resp.RecordingURL,
		StartedAt:         startedAt,
	}
	for _, q := range resp.Questions {
		s.Questions = append(s.Questions, Question{ID: q.QuestionID, Text: q.Text})
	}
	return s
}

// CurrentQuestion returns the question answers are filed under.
func (s Session) CurrentQuestion() (Question, bool) {
	if s.Current < 0 || s.Current >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Current], true
}

// ResultsPath is where the front-end goes once the session ends.
func (s Session) ResultsPath() string {
	return finalize.ResultsPath(s.ID)
}

func (s Session) clone() Session {
	s.Questions = append([]Question(nil), s.Questions...)
	return s
}

// FinalizeGuard records whether the session's end sequence has been
// claimed. Exactly one Claim returns true.
type FinalizeGuard struct {
	claimed atomic.Bool
}

// Claim sets the guard and reports whether this call set it.
func (g *FinalizeGuard) Claim() bool {
	return g.claimed.CompareAndSwap(false, true)
}

func (g *FinalizeGuard) isClaimed() bool {
	return g.claimed.Load()
}
