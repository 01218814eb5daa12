package finalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/capture"
	"github.com/randalmurphal/interviewroom/storage"
)

// =============================================================================
// Collaborators
// =============================================================================

// Backend is the part of the interview API the pipeline calls.
type Backend interface {
	UploadSignature(ctx context.Context) (*backend.UploadSignature, error)
	AttachRecording(ctx context.Context, interviewID int64, url string) error
	EndInterview(ctx context.Context, interviewID int64) (*backend.EndResponse, error)
}

// Uploader sends a recording to cloud storage.
type Uploader interface {
	Upload(ctx context.Context, creds storage.Credentials, name string, r io.Reader) (*storage.Result, error)
}

// Navigator moves the front-end between views.
type Navigator interface {
	Navigate(path string)
	Location() string
}

// Releaser discards a local recording once it is stored remotely.
// *artifact.LifecycleManager satisfies it.
type Releaser interface {
	Release(path string) error
}

// ArtifactSource hands over the finished recording. *capture.Recorder
// satisfies it.
type ArtifactSource interface {
	Take() (capture.Artifact, error)
}

// ResultsPath is the results view for an interview.
func ResultsPath(interviewID int64) string {
	return fmt.Sprintf("/results/%d", interviewID)
}

// AtResults reports whether location already shows the results for
// interviewID. location may be a full URL.
func AtResults(location string, interviewID int64) bool {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	location = strings.TrimSuffix(location, "/")
	return strings.HasSuffix(location, ResultsPath(interviewID))
}

// =============================================================================
// Pipeline
// =============================================================================

// Config configures a Pipeline.
type Config struct {
	Backend   Backend
	Uploader  Uploader
	Navigator Navigator

	// Retention removes the local recording after it is attached. When
	// nil the file is left in place.
	Retention Releaser

	Logger *slog.Logger
}

// Pipeline runs the finalize steps for one ended interview.
type Pipeline struct {
	backend   Backend
	uploader  Uploader
	navigator Navigator
	retention Releaser
	logger    *slog.Logger

	run func(flowgraph.Context, State) (State, error)
}

// New compiles the finalize graph.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Backend == nil {
		return nil, errors.New("finalize: backend is required")
	}
	p := &Pipeline{
		backend:   cfg.Backend,
		uploader:  cfg.Uploader,
		navigator: cfg.Navigator,
		retention: cfg.Retention,
		logger:    cfg.Logger,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	compiled, err := flowgraph.NewGraph[State]().
		AddNode(StepMaterialize, p.materialize).
		AddNode(StepSignature, p.signature).
		AddNode(StepUpload, p.upload).
		AddNode(StepAttach, p.attach).
		AddNode(StepRelease, p.release).
		AddNode(StepEnd, p.end).
		AddNode(StepNavigate, p.navigate).
		AddConditionalEdge(StepMaterialize, routeAfterMaterialize).
		AddConditionalEdge(StepSignature, routeAfterSignature).
		AddConditionalEdge(StepUpload, routeAfterUpload).
		AddConditionalEdge(StepAttach, routeAfterAttach).
		AddEdge(StepRelease, StepEnd).
		AddEdge(StepEnd, StepNavigate).
		AddEdge(StepNavigate, flowgraph.END).
		SetEntry(StepMaterialize).
		Compile()
	if err != nil {
		return nil, fmt.Errorf("compile finalize graph: %w", err)
	}
	p.run = func(ctx flowgraph.Context, s State) (State, error) {
		return compiled.Run(ctx, s)
	}
	return p, nil
}

// Run finalizes interviewID. src may be nil when nothing was recorded.
// Step failures are recorded in the returned State and never stop the
// remaining steps. Navigation to results happens even if the graph itself
// fails, unless the navigator is already there. Progress the graph made
// before failing is kept.
func (p *Pipeline) Run(ctx context.Context, interviewID int64, src ArtifactSource) State {
	state := State{InterviewID: interviewID, source: src}

	final, err := p.run(flowgraph.NewContext(ctx), state)
	if err != nil {
		p.logger.Error("finalize graph failed", "session_id", interviewID, "error", err)
		if final.InterviewID == 0 {
			final = state
		}
		final.fail("graph", err)
		if !final.Ended {
			final.Ended = p.endSession(ctx, &final)
		}
	}

	if !final.Navigated {
		final.Navigated = p.ensureResults(interviewID)
	}
	return final
}
