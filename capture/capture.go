// Package capture records the candidate's camera and microphone into one
// local media file per interview.
//
// Recording is best-effort. When devices cannot be opened Start returns an
// error matching ErrDeviceUnavailable and the interview carries on without
// a recording.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Capture errors.
var (
	// ErrDeviceUnavailable indicates the camera or microphone could not be
	// acquired.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrAlreadyStarted indicates Start was called twice. A recorder makes
	// exactly one artifact.
	ErrAlreadyStarted = errors.New("recording already started")

	// ErrNotStopped indicates Take was called before the stop settled.
	ErrNotStopped = errors.New("recording has not stopped")

	// ErrTaken indicates the artifact was already handed off.
	ErrTaken = errors.New("artifact already taken")
)

// Handle controls one running capture.
type Handle interface {
	// Stop finalizes the output file and returns once it is complete.
	Stop() error
}

// MediaCapture starts writing combined audio and video to dst.
type MediaCapture interface {
	Begin(ctx context.Context, dst string) (Handle, error)
}

// Artifact is the finished recording.
type Artifact struct {
	Path string
	Size int64
}

// Empty reports whether there is nothing worth uploading.
func (a Artifact) Empty() bool {
	return a.Path == "" || a.Size <= 0
}

// Open opens the artifact for reading.
func (a Artifact) Open() (io.ReadCloser, error) {
	return os.Open(a.Path)
}

// Name returns the file name of the artifact.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// Dir receives the artifact. Created if missing.
	Dir string

	// Key ties the artifact name to the interview.
	Key string

	// Ext is the file extension without the dot. Defaults to "webm".
	Ext string

	Logger *slog.Logger
}

// Recorder produces one artifact per interview.
type Recorder struct {
	capture MediaCapture
	cfg     RecorderConfig
	logger  *slog.Logger

	mu       sync.Mutex
	handle   Handle
	path     string
	started  bool
	stopping bool
	taken    bool
	artifact Artifact
	stopErr  error
	stopped  chan struct{}
}

// NewRecorder creates a recorder that writes through capture.
func NewRecorder(capture MediaCapture, cfg RecorderConfig) *Recorder {
	if cfg.Ext == "" {
		cfg.Ext = "webm"
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		capture: capture,
		cfg:     cfg,
		logger:  logger,
		stopped: make(chan struct{}),
	}
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}
	if r.capture == nil {
		return fmt.Errorf("%w: no capture backend", ErrDeviceUnavailable)
	}

	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}

	path, err := r.artifactPath()
	if err != nil {
		return err
	}

	handle, err := r.capture.Begin(ctx, path)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	r.handle = handle
	r.path = path
	r.started = true
	r.logger.Debug("recording started", "path", path)
	return nil
}

// SetKey ties the artifact name to an interview. It has no effect once
// recording has started.
func (r *Recorder) SetKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.cfg.Key = key
}

// active reports whether a capture was started and has not been asked to
// stop.
func (r *Recorder) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started && !r.stopping
}

func (r *Recorder) hasStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Stop asks the capture to finalize. It returns immediately; Stopped is
// closed once the file is complete. Calling Stop on a recorder that never
// started, or twice, does nothing.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.started || r.stopping {
		r.mu.Unlock()
		return
	}
	r.stopping = true
	handle := r.handle
	path := r.path
	r.mu.Unlock()

	go func() {
		err := handle.Stop()

		var art Artifact
		if info, statErr := os.Stat(path); statErr == nil {
			art = Artifact{Path: path, Size: info.Size()}
		} else if err == nil {
			err = fmt.Errorf("stat recording: %w", statErr)
		}

		if err != nil {
			r.logger.Warn("recording stop failed", "path", path, "error", err)
		}

		r.mu.Lock()
		r.artifact = art
		r.stopErr = err
		r.mu.Unlock()

		close(r.stopped)
	}()
}

// Stopped is closed once a requested stop has settled.
func (r *Recorder) Stopped() <-chan struct{} {
	return r.stopped
}

// Take hands the artifact off. The recorder does not touch the file
// afterwards. An artifact is returned even when the capture reported an
// error on stop, as long as a file exists.
func (r *Recorder) Take() (Artifact, error) {
	select {
	case <-r.stopped:
	default:
		return Artifact{}, ErrNotStopped
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken {
		return Artifact{}, ErrTaken
	}
	r.taken = true
	return r.artifact, nil
}

// stopError returns the error reported when the capture stopped.
func (r *Recorder) stopError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopErr
}

func (r *Recorder) artifactPath() (string, error) {
	suffix, err := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 8)
	if err != nil {
		return "", fmt.Errorf("generate artifact name: %w", err)
	}

	name := "interview-" + suffix + "." + r.cfg.Ext
	if r.cfg.Key != "" {
		name = "interview-" + r.cfg.Key + "-" + suffix + "." + r.cfg.Ext
	}
	return filepath.Join(r.cfg.Dir, name), nil
}
