package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// DefaultMicrophoneArgs returns ffmpeg audio-only device arguments for the
// current platform.
func DefaultMicrophoneArgs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"-f", "avfoundation", "-i", ":0"}
	case "windows":
		return []string{"-f", "dshow", "-i", "audio=Microphone"}
	default:
		return []string{"-f", "alsa", "-i", "default"}
	}
}

// Microphone streams raw 16-bit little-endian mono PCM from ffmpeg's
// stdout. It opens a fresh process per Open, which is what a recognition
// engine wants when it restarts.
type Microphone struct {
	Binary     string
	InputArgs  []string
	SampleRate int
	Logger     *slog.Logger
}

// NewMicrophone creates a microphone source. A non-empty inputArgs string
// replaces the default device arguments.
func NewMicrophone(inputArgs string, sampleRate int, logger *slog.Logger) *Microphone {
	args := DefaultMicrophoneArgs()
	if strings.TrimSpace(inputArgs) != "" {
		args = strings.Fields(inputArgs)
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Microphone{
		Binary:     "ffmpeg",
		InputArgs:  args,
		SampleRate: sampleRate,
		Logger:     logger,
	}
}

// Args returns the full ffmpeg argument list.
func (m *Microphone) Args() []string {
	args := append([]string{"-loglevel", "error"}, m.InputArgs...)
	return append(args,
		"-ac", "1",
		"-ar", strconv.Itoa(m.SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
}

// Open starts ffmpeg and returns its PCM output. Closing the reader stops
// the process.
func (m *Microphone) Open(ctx context.Context) (io.ReadCloser, error) {
	bin := m.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, bin, m.Args()...)
	stderr := &tailBuffer{max: 2048}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start %s: %w", ErrDeviceUnavailable, bin, err)
	}

	return &pcmStream{
		ReadCloser: stdout,
		cancel:     cancel,
		wait:       cmd.Wait,
		stderr:     stderr,
		logger:     m.Logger,
	}, nil
}

type pcmStream struct {
	io.ReadCloser
	cancel context.CancelFunc
	wait   func() error
	stderr *tailBuffer
	logger *slog.Logger
	once   sync.Once
}

func (p *pcmStream) Close() error {
	p.once.Do(func() {
		p.cancel()
		if err := p.wait(); err != nil && p.stderr.Tail() != "" {
			p.logger.Debug("microphone stream closed", "error", err, "stderr", p.stderr.Tail())
		}
	})
	return nil
}
