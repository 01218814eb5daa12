package backend

import (
	"strings"
	"time"

	"github.com/randalmurphal/interviewroom/auth"
	"github.com/randalmurphal/interviewroom/transcript"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        auth.Identity `json:"user"`
}

// Profile is the candidate's extended profile from GET /api/profile/me.
type Profile struct {
	Age             *int     `json:"age"`
	TargetRole      string   `json:"target_role"`
	TargetCompany   string   `json:"target_company"`
	TechStack       []string `json:"tech_stack"`
	WorkExperiences []string `json:"work_experiences"`
	Projects        []string `json:"projects"`
	CompaniesWorked []string `json:"companies_worked"`
}

// Candidate identifies who is being interviewed.
type Candidate struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	ResumeSummary *string `json:"resume_summary"`
}

// StartRequest is the body of POST /api/interview/start.
type StartRequest struct {
	Candidate     Candidate `json:"candidate"`
	InterviewerID int       `json:"interviewer_id"`
	InterviewType string    `json:"interview_type"`
	Skills        []string  `json:"skills"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
}

// DefaultInterviewerID is the only interviewer persona the backend offers.
const DefaultInterviewerID = 1

// NewStartRequest stamps a start request with the local date and time.
func NewStartRequest(c Candidate, role string, skills []string, now time.Time) StartRequest {
	if skills == nil {
		skills = []string{}
	}
	return StartRequest{
		Candidate:     c,
		InterviewerID: DefaultInterviewerID,
		InterviewType: role,
		Skills:        skills,
		Date:          now.Format(time.DateOnly),
		Time:          now.Format(time.TimeOnly),
	}
}

// Question is one interview question as issued by the backend.
type Question struct {
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
}

// StartResponse is returned when an interview session is created.
type StartResponse struct {
	InterviewID     int64      `json:"interview_id"`
	Questions       []Question `json:"questions"`
	ConversationURL string     `json:"conversation_url"`
	AvatarError     string     `json:"tavus_error"`
	RecordingURL    string     `json:"recording_url"`
}

// AnswerRequest is the body of an answer update.
type AnswerRequest struct {
	AnswerText string `json:"answer_text"`
}

// TranscriptEntry is one line of the authoritative transcript.
type TranscriptEntry struct {
	Sender       string `json:"sender"`
	Text         string `json:"text"`
	Timestamp    string `json:"timestamp"`
	OriginalRole string `json:"original_role,omitempty"`
}

// TranscriptResponse wraps GET /api/interview/{id}/transcript.
type TranscriptResponse struct {
	Transcript []TranscriptEntry `json:"transcript"`
}

// Utterances converts the response into transcript utterances in server
// order. Unparseable timestamps become the zero time.
func (r TranscriptResponse) Utterances() []transcript.Utterance {
	out := make([]transcript.Utterance, 0, len(r.Transcript))
	for _, e := range r.Transcript {
		out = append(out, transcript.Utterance{
			Speaker: transcript.SpeakerFromSender(e.Sender),
			Text:    e.Text,
			At:      parseTimestamp(e.Timestamp),
		})
	}
	return out
}

// UploadSignature is a short-lived signed-upload credential set.
type UploadSignature struct {
	APIKey    string `json:"api_key"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	Folder    string `json:"folder"`
	CloudName string `json:"cloud_name"`
}

// Valid reports whether the credential set has every field an upload
// needs.
func (s UploadSignature) Valid() bool {
	return s.APIKey != "" && s.Timestamp != 0 && s.Signature != "" && s.CloudName != ""
}

// RecordingRequest is the body of PATCH /api/interview/{id}/recording.
type RecordingRequest struct {
	RecordingURL string `json:"recording_url"`
}

// EndResponse is returned by POST /api/interview/{id}/end.
type EndResponse struct {
	Status     string `json:"status"`
	Transcript string `json:"transcript"`
}

// SummaryItem is one scored answer.
type SummaryItem struct {
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	RelevanceScore  *int   `json:"relevance_score"`
	ConfidenceLevel *int   `json:"confidence_level"`
}

// Summary is the scored result of a finished interview.
type Summary struct {
	InterviewID  int64         `json:"interview_id"`
	OverallScore *int          `json:"overall_score"`
	Items        []SummaryItem `json:"items"`
	Transcript   string        `json:"transcript"`
	CompletedAt  *time.Time    `json:"completed_at"`
	RecordingURL string        `json:"recording_url"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
