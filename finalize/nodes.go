package finalize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/interviewroom/capture"
	"github.com/randalmurphal/interviewroom/notify"
	"github.com/randalmurphal/interviewroom/storage"
)

// =============================================================================
// Nodes
//
// Nodes never return an error. A failed step is recorded on the state and
// the routers decide which best-effort step runs next.
// =============================================================================

func (p *Pipeline) materialize(ctx flowgraph.Context, s State) (State, error) {
	if s.source == nil {
		p.logger.Info("no recording for session", "session_id", s.InterviewID)
		return s, nil
	}

	art, err := s.source.Take()
	if err != nil {
		p.stepFailed(ctx, &s, StepMaterialize, err)
		return s, nil
	}

	s.ArtifactPath = art.Path
	s.ArtifactBytes = art.Size
	if art.Empty() {
		p.logger.Warn("recording is empty, skipping upload", "session_id", s.InterviewID)
	}
	return s, nil
}

func (p *Pipeline) signature(ctx flowgraph.Context, s State) (State, error) {
	sig, err := p.backend.UploadSignature(ctx)
	if err != nil {
		p.stepFailed(ctx, &s, StepSignature, err)
		return s, nil
	}
	if !sig.Valid() {
		p.stepFailed(ctx, &s, StepSignature, errors.New("incomplete upload credentials"))
		return s, nil
	}

	s.creds = credentials{
		apiKey:    sig.APIKey,
		timestamp: sig.Timestamp,
		signature: sig.Signature,
		folder:    sig.Folder,
		cloudName: sig.CloudName,
	}
	s.HasCredentials = true
	return s, nil
}

func (p *Pipeline) upload(ctx flowgraph.Context, s State) (State, error) {
	if p.uploader == nil {
		p.stepFailed(ctx, &s, StepUpload, errors.New("no uploader configured"))
		return s, nil
	}

	art := capture.Artifact{Path: s.ArtifactPath, Size: s.ArtifactBytes}
	f, err := art.Open()
	if err != nil {
		p.stepFailed(ctx, &s, StepUpload, err)
		return s, nil
	}
	defer f.Close()

	res, err := p.uploader.Upload(ctx, storage.Credentials{
		APIKey:    s.creds.apiKey,
		Timestamp: s.creds.timestamp,
		Signature: s.creds.signature,
		Folder:    s.creds.folder,
		CloudName: s.creds.cloudName,
	}, filepath.Base(s.ArtifactPath), f)
	if err != nil {
		p.stepFailed(ctx, &s, StepUpload, err)
		return s, nil
	}

	s.RecordingURL = res.SecureURL
	notify.Emit(ctx, notify.Event{
		Type:      notify.EventRecordingUploaded,
		SessionID: s.InterviewID,
		Step:      StepUpload,
		Message:   "Recording uploaded",
		Metadata: map[string]any{
			"url":   res.SecureURL,
			"bytes": s.ArtifactBytes,
		},
	})
	return s, nil
}

func (p *Pipeline) attach(ctx flowgraph.Context, s State) (State, error) {
	if err := p.backend.AttachRecording(ctx, s.InterviewID, s.RecordingURL); err != nil {
		p.stepFailed(ctx, &s, StepAttach, err)
		return s, nil
	}
	s.Attached = true
	p.logger.Info("recording saved", "session_id", s.InterviewID, "url", s.RecordingURL)
	return s, nil
}

func (p *Pipeline) release(ctx flowgraph.Context, s State) (State, error) {
	if p.retention == nil {
		return s, nil
	}
	if err := p.retention.Release(s.ArtifactPath); err != nil {
		p.stepFailed(ctx, &s, StepRelease, err)
		return s, nil
	}
	s.Released = true
	return s, nil
}

func (p *Pipeline) end(ctx flowgraph.Context, s State) (State, error) {
	s.Ended = p.endSession(ctx, &s)
	return s, nil
}

func (p *Pipeline) navigate(_ flowgraph.Context, s State) (State, error) {
	s.Navigated = p.ensureResults(s.InterviewID)
	return s, nil
}

// =============================================================================
// Routers
// =============================================================================

func routeAfterMaterialize(_ flowgraph.Context, s State) string {
	if s.ArtifactBytes > 0 {
		return StepSignature
	}
	return StepEnd
}

func routeAfterSignature(_ flowgraph.Context, s State) string {
	if s.HasCredentials {
		return StepUpload
	}
	return StepEnd
}

func routeAfterUpload(_ flowgraph.Context, s State) string {
	if s.Uploaded() {
		return StepAttach
	}
	return StepEnd
}

func routeAfterAttach(_ flowgraph.Context, s State) string {
	if s.Attached {
		return StepRelease
	}
	return StepEnd
}

// =============================================================================
// Helpers
// =============================================================================

func (p *Pipeline) endSession(ctx context.Context, s *State) bool {
	if _, err := p.backend.EndInterview(ctx, s.InterviewID); err != nil {
		p.stepFailed(ctx, s, StepEnd, err)
		return false
	}
	p.logger.Info("interview marked as completed", "session_id", s.InterviewID)
	return true
}

// ensureResults navigates to the results view unless the navigator is
// already showing it.
func (p *Pipeline) ensureResults(interviewID int64) bool {
	if p.navigator == nil {
		return false
	}
	if AtResults(p.navigator.Location(), interviewID) {
		return true
	}
	p.navigator.Navigate(ResultsPath(interviewID))
	return true
}

func (p *Pipeline) stepFailed(ctx context.Context, s *State, step string, err error) {
	s.fail(step, err)
	p.logger.Warn("finalize step failed", "session_id", s.InterviewID, "step", step, "error", err)
	notify.Emit(ctx, notify.Event{
		Type:      notify.EventFinalizeStepFailed,
		SessionID: s.InterviewID,
		Step:      step,
		Message:   fmt.Sprintf("%s failed: %v", step, err),
		Severity:  notify.SeverityWarning,
	})
}
