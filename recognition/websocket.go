package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// AudioSource opens a fresh PCM stream for each recognition session.
type AudioSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// AudioSourceFunc adapts a function to AudioSource.
type AudioSourceFunc func(ctx context.Context) (io.ReadCloser, error)

// Open calls f.
func (f AudioSourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// WebSocketConfig configures a WebSocketStream.
type WebSocketConfig struct {
	// URL is the streaming endpoint (ws:// or wss://).
	URL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// Model and Language are passed as query parameters when set.
	Model    string
	Language string

	// Encoding defaults to pcm_s16le and SampleRate to 16000.
	Encoding   string
	SampleRate int

	// ChunkSize is the audio frame size in bytes. Defaults to 4096.
	ChunkSize int

	// HandshakeTimeout bounds the dial. Defaults to 10s.
	HandshakeTimeout time.Duration

	Logger *slog.Logger
}

// WebSocketStream streams microphone audio to a speech-to-text service over
// a WebSocket and reports its final transcripts.
//
// Wire protocol: binary frames carry audio; text "finalize" flushes at end
// of input and "done" closes. The server sends JSON messages
// {"type": "transcript"|"flush_done"|"done"|"error", "text", "is_final",
// "error"}.
type WebSocketStream struct {
	cfg    WebSocketConfig
	source AudioSource
	dialer websocket.Dialer
	logger *slog.Logger

	mu       sync.Mutex
	handlers Handlers
	current  *wsSession
}

type wsSession struct {
	conn    *websocket.Conn
	audio   io.ReadCloser
	cancel  context.CancelFunc
	writeMu sync.Mutex
	stopped atomic.Bool
}

type wsMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Error   string `json:"error"`
}

// NewWebSocketStream creates an engine reading audio from source.
func NewWebSocketStream(cfg WebSocketConfig, source AudioSource) *WebSocketStream {
	if cfg.Encoding == "" {
		cfg.Encoding = "pcm_s16le"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebSocketStream{
		cfg:    cfg,
		source: source,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: logger,
	}
}

// SetHandlers implements Stream.
func (s *WebSocketStream) SetHandlers(h Handlers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = h
}

// Start dials the service and begins streaming audio. Starting a running
// stream is a no-op.
func (s *WebSocketStream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return nil
	}

	endpoint, err := s.endpoint()
	if err != nil {
		return err
	}

	headers := http.Header{}
	if s.cfg.APIKey != "" {
		headers.Set("X-API-Key", s.cfg.APIKey)
	}

	conn, resp, err := s.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 0 {
				return fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
			return fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket connect: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	audio, err := s.source.Open(sessCtx)
	if err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("open audio source: %w", err)
	}

	sess := &wsSession{conn: conn, audio: audio, cancel: cancel}
	s.current = sess

	go s.readLoop(sess)
	go s.pumpAudio(sessCtx, sess)

	return nil
}

// Stop closes the current session. It does not fire OnEnd.
func (s *WebSocketStream) Stop() error {
	s.mu.Lock()
	sess := s.current
	s.current = nil
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.close()
}

func (s *WebSocketStream) endpoint() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse websocket URL: %w", err)
	}

	q := u.Query()
	if s.cfg.Model != "" {
		q.Set("model", s.cfg.Model)
	}
	if s.cfg.Language != "" {
		q.Set("language", s.cfg.Language)
	}
	q.Set("encoding", s.cfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(s.cfg.SampleRate))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (s *WebSocketStream) handlersSnapshot() Handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers
}

func (s *WebSocketStream) readLoop(sess *wsSession) {
	defer func() {
		s.mu.Lock()
		if s.current == sess {
			s.current = nil
		}
		s.mu.Unlock()

		spontaneous := !sess.stopped.Load()
		sess.close()

		if h := s.handlersSnapshot(); spontaneous && h.OnEnd != nil {
			h.OnEnd()
		}
	}()

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if !sess.stopped.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("recognition stream closed", "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		h := s.handlersSnapshot()
		switch msg.Type {
		case "transcript":
			if msg.IsFinal && h.OnResult != nil {
				h.OnResult(msg.Text)
			}
		case "flush_done":
			continue
		case "done":
			return
		case "error":
			if h.OnError != nil {
				h.OnError(engineError(msg.Error))
			}
		}
	}
}

func (s *WebSocketStream) pumpAudio(ctx context.Context, sess *wsSession) {
	buf := make([]byte, s.cfg.ChunkSize)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := sess.audio.Read(buf)
		if n > 0 {
			if werr := sess.write(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if errors.Is(err, io.EOF) {
			_ = sess.write(websocket.TextMessage, []byte("finalize"))
			return
		}
		if err != nil {
			if h := s.handlersSnapshot(); h.OnError != nil && ctx.Err() == nil {
				h.OnError(fmt.Errorf("read audio: %w", err))
			}
			return
		}
	}
}

func (sess *wsSession) write(messageType int, data []byte) error {
	if sess.stopped.Load() {
		return errors.New("session closed")
	}
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	return sess.conn.WriteMessage(messageType, data)
}

func (sess *wsSession) close() error {
	if sess.stopped.Swap(true) {
		return nil
	}
	sess.cancel()

	sess.writeMu.Lock()
	_ = sess.conn.WriteMessage(websocket.TextMessage, []byte("done"))
	_ = sess.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	sess.writeMu.Unlock()

	_ = sess.audio.Close()
	return sess.conn.Close()
}

func engineError(msg string) error {
	switch msg {
	case "no_speech", "no-speech":
		return ErrNoSpeech
	case "":
		return errors.New("recognition engine error")
	default:
		return fmt.Errorf("recognition engine error: %s", msg)
	}
}
