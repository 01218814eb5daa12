// Package recognition turns a speech-to-text engine into a continuous stream
// of candidate utterances.
//
// Engines close their stream on their own after stretches of silence. The
// Adapter hides that: while it should be listening, a spontaneous
// end-of-stream restarts the engine. Once Stop is called it stays stopped.
package recognition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoSpeech is reported by engines when a segment contained no speech.
// The Adapter treats it as a no-op.
var ErrNoSpeech = errors.New("no speech detected")

// Handlers receive engine events. Engines must not call them synchronously
// from Start or Stop.
type Handlers struct {
	// OnResult receives each final recognized segment.
	OnResult func(text string)

	// OnError receives engine errors. The stream keeps running.
	OnError func(err error)

	// OnEnd fires when the engine ends its stream without Stop being called.
	OnEnd func()
}

// Stream is a speech-to-text engine.
type Stream interface {
	SetHandlers(h Handlers)
	Start(ctx context.Context) error
	Stop() error
}

// Result is one recognized utterance with the client time it arrived.
type Result struct {
	Text string
	At   time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// Adapter wraps a Stream with continuous-listening semantics.
type Adapter struct {
	stream Stream
	logger *slog.Logger
	now    func() time.Time

	// ops serializes engine start/stop so a Stop issued while a restart is
	// pending is seen by the restart.
	ops       sync.Mutex
	listening bool
	ctx       context.Context

	handlerMu sync.RWMutex
	handler   func(Result)

	restarts atomic.Int64
}

// NewAdapter wraps stream.
func NewAdapter(stream Stream, opts ...Option) *Adapter {
	a := &Adapter{
		stream: stream,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	stream.SetHandlers(Handlers{
		OnResult: a.handleResult,
		OnError:  a.handleError,
		OnEnd:    a.handleEnd,
	})
	return a
}

// OnUtterance registers the handler for recognized utterances. It replaces
// any previous handler.
func (a *Adapter) OnUtterance(fn func(Result)) {
	a.handlerMu.Lock()
	defer a.handlerMu.Unlock()
	a.handler = fn
}

// Start begins continuous recognition. Calling Start while already
// listening is a no-op.
func (a *Adapter) Start(ctx context.Context) error {
	a.ops.Lock()
	defer a.ops.Unlock()

	if a.listening {
		return nil
	}
	if err := a.stream.Start(ctx); err != nil {
		return err
	}
	a.listening = true
	a.ctx = ctx
	return nil
}

// Stop ends recognition and disables auto-restart.
func (a *Adapter) Stop() error {
	a.ops.Lock()
	defer a.ops.Unlock()

	if !a.listening {
		return nil
	}
	a.listening = false
	return a.stream.Stop()
}

// Listening reports whether the adapter should currently be listening.
func (a *Adapter) Listening() bool {
	a.ops.Lock()
	defer a.ops.Unlock()
	return a.listening
}

func (a *Adapter) restartCount() int64 {
	return a.restarts.Load()
}

func (a *Adapter) handleResult(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if !a.Listening() {
		return
	}

	a.handlerMu.RLock()
	fn := a.handler
	a.handlerMu.RUnlock()

	if fn != nil {
		fn(Result{Text: text, At: a.now()})
	}
}

func (a *Adapter) handleError(err error) {
	if errors.Is(err, ErrNoSpeech) {
		return
	}
	a.logger.Warn("recognition error", "error", err)
}

func (a *Adapter) handleEnd() {
	a.ops.Lock()
	defer a.ops.Unlock()

	if !a.listening {
		return
	}
	if a.ctx != nil && a.ctx.Err() != nil {
		a.listening = false
		return
	}

	a.restarts.Add(1)
	if err := a.stream.Start(a.ctx); err != nil {
		a.listening = false
		a.logger.Error("recognition restart failed", "error", err)
	}
}
