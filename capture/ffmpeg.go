package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// FFmpegCapture records through an ffmpeg subprocess.
//
// The command line is Binary + InputArgs + OutputArgs + dst. Stop writes
// "q" to ffmpeg's stdin, which makes it flush and close the container
// cleanly; if it has not exited after StopTimeout it is killed.
type FFmpegCapture struct {
	Binary     string
	InputArgs  []string
	OutputArgs []string

	// StartupWait is how long Begin waits for an early exit, which is how
	// ffmpeg reports devices it cannot open. Defaults to 500ms.
	StartupWait time.Duration

	// StopTimeout defaults to 10s.
	StopTimeout time.Duration

	Logger *slog.Logger
}

// DefaultInputArgs returns ffmpeg device arguments for the current
// platform.
func DefaultInputArgs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"-f", "avfoundation", "-framerate", "30", "-i", "0:0"}
	case "windows":
		return []string{"-f", "dshow", "-i", "video=Integrated Camera:audio=Microphone"}
	default:
		return []string{"-f", "v4l2", "-i", "/dev/video0", "-f", "alsa", "-i", "default"}
	}
}

// DefaultOutputArgs encodes to VP8/Opus WebM.
func DefaultOutputArgs() []string {
	return []string{"-c:v", "libvpx", "-b:v", "1M", "-c:a", "libopus", "-y"}
}

// NewFFmpegCapture creates a capture with platform defaults. A non-empty
// inputArgs string replaces the default device arguments.
func NewFFmpegCapture(inputArgs string, logger *slog.Logger) *FFmpegCapture {
	args := DefaultInputArgs()
	if strings.TrimSpace(inputArgs) != "" {
		args = strings.Fields(inputArgs)
	}
	return &FFmpegCapture{
		Binary:     "ffmpeg",
		InputArgs:  args,
		OutputArgs: DefaultOutputArgs(),
		Logger:     logger,
	}
}

// Begin implements MediaCapture.
func (f *FFmpegCapture) Begin(ctx context.Context, dst string) (Handle, error) {
	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	wait := f.StartupWait
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	stopTimeout := f.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := make([]string, 0, len(f.InputArgs)+len(f.OutputArgs)+1)
	args = append(args, f.InputArgs...)
	args = append(args, f.OutputArgs...)
	args = append(args, dst)

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, bin, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	// Cancellation (Stop or the session ending) asks ffmpeg to finish the
	// file instead of killing it.
	cmd.Cancel = func() error {
		_, werr := io.WriteString(stdin, "q\n")
		stdin.Close()
		return werr
	}
	cmd.WaitDelay = stopTimeout

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start %s: %w", ErrDeviceUnavailable, bin, err)
	}

	h := &ffmpegHandle{
		cancel: cancel,
		done:   make(chan struct{}),
		stderr: stderr,
		logger: logger,
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	select {
	case <-h.done:
		cancel()
		return nil, fmt.Errorf("%w: ffmpeg exited during startup: %s",
			ErrDeviceUnavailable, stderr.Tail())
	case <-time.After(wait):
	}

	return h, nil
}

type ffmpegHandle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	waitErr error
	stderr  *tailBuffer
	logger  *slog.Logger
	once    sync.Once
}

// Stop implements Handle.
func (h *ffmpegHandle) Stop() error {
	h.once.Do(h.cancel)
	<-h.done

	err := h.waitErr
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ffmpeg exits 255 when interrupted but the file is still valid.
		if exitErr.ExitCode() == 255 {
			return nil
		}
		return fmt.Errorf("ffmpeg exited with code %d: %s", exitErr.ExitCode(), h.stderr.Tail())
	}
	return fmt.Errorf("ffmpeg: %w", err)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

// Tail returns the buffered output, trimmed.
func (b *tailBuffer) Tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
