package finalize

import (
	"fmt"
	"time"
)

// Step names. Each is a node in the finalize graph.
const (
	StepMaterialize = "materialize"
	StepSignature   = "signature"
	StepUpload      = "upload"
	StepAttach      = "attach"
	StepRelease     = "release_recording"
	StepEnd         = "end_session"
	StepNavigate    = "navigate"
)

// StepError records a step that failed. Finalize continues past it.
type StepError struct {
	Step  string    `json:"step"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// State flows through the finalize graph.
type State struct {
	InterviewID int64 `json:"interviewId"`

	// ArtifactPath and ArtifactBytes describe the materialized recording.
	// ArtifactBytes is zero when nothing was recorded.
	ArtifactPath  string `json:"artifactPath,omitempty"`
	ArtifactBytes int64  `json:"artifactBytes"`

	// HasCredentials is set once a valid signed-upload credential set was
	// issued.
	HasCredentials bool `json:"hasCredentials"`

	RecordingURL string `json:"recordingUrl,omitempty"`
	Attached     bool   `json:"attached"`

	// Released is set once the local copy of an attached recording was
	// removed.
	Released bool `json:"released"`

	Ended     bool `json:"ended"`
	Navigated bool `json:"navigated"`

	Failures []StepError `json:"failures,omitempty"`

	source ArtifactSource
	creds  credentials
}

type credentials struct {
	apiKey    string
	timestamp int64
	signature string
	folder    string
	cloudName string
}

// Uploaded reports whether the recording reached cloud storage.
func (s State) Uploaded() bool {
	return s.RecordingURL != ""
}

// Failed reports whether step recorded a failure.
func (s State) Failed(step string) bool {
	for _, f := range s.Failures {
		if f.Step == step {
			return true
		}
	}
	return false
}

func (s *State) fail(step string, err error) {
	s.Failures = append(s.Failures, StepError{
		Step:  step,
		Error: err.Error(),
		At:    time.Now(),
	})
}

func (s State) String() string {
	return fmt.Sprintf("finalize(%d bytes=%d uploaded=%t ended=%t navigated=%t failures=%d)",
		s.InterviewID, s.ArtifactBytes, s.Uploaded(), s.Ended, s.Navigated, len(s.Failures))
}
