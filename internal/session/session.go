// Package session implements the viewer side of the per-camera stream: a
// client connection with automatic reconnect, frame decoding, detection
// overlay tracking, and a rolling FPS estimate.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"videobase-go/internal/models"
	"videobase-go/internal/normalizer"
)

// State is the session lifecycle phase. Transitions are linear within one
// connection attempt: Connecting -> Open -> Reconnecting -> Connecting,
// with Closed terminal from anywhere.
type State string

const (
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Transport is one live server connection. ReadMessage blocks until the
// next message, a transport failure, or Close.
type Transport interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens transports. The default is a gorilla WebSocket dialer; tests
// substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// RenderedFrame is one decoded frame handed to the renderer together with
// the overlays current at render time.
type RenderedFrame struct {
	CameraID  string
	Sequence  uint64
	JPEG      []byte
	Overlays  []models.NormalizedDetection
	Timestamp time.Time
	FPS       float64
}

// Renderer consumes session output. Implementations must not block; a slow
// renderer stalls the read loop and forfeits freshness.
type Renderer interface {
	RenderFrame(f RenderedFrame)
	SourceUnavailable(cameraID string)
	StateChanged(s State)
}

// Options configure a viewer session.
type Options struct {
	ServerURL      string        // e.g. ws://localhost:9200
	CameraID       string        // empty selects the server's default camera
	ReconnectDelay time.Duration // fixed delay between attempts (default 3s)
	Dialer         Dialer        // nil uses the WebSocket dialer
}

// Session drives one viewer connection. Create with New, run with Run,
// stop by cancelling the context.
type Session struct {
	opts Options
	url  string
	log  zerolog.Logger

	mu       sync.Mutex
	state    State
	overlays []models.NormalizedDetection
	window   []time.Time // frame arrival times inside the FPS window

	renderer Renderer
}

const fpsWindow = time.Second

// New builds a session. renderer must not be nil.
func New(opts Options, renderer Renderer, logger zerolog.Logger) (*Session, error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if opts.ServerURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}

	base := strings.TrimRight(opts.ServerURL, "/")
	url := base + "/ws"
	if opts.CameraID != "" {
		url = base + "/ws/" + opts.CameraID
	}

	return &Session{
		opts:     opts,
		url:      url,
		state:    StateConnecting,
		renderer: renderer,
		log: logger.With().
			Str("camera_id", opts.CameraID).
			Str("url", url).Logger(),
	}, nil
}

// State reports the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FPS reports frames rendered over the trailing one-second window.
func (s *Session) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.trimWindow(time.Now()))
}

// Overlays returns the most recent detection set. Each AI message replaces
// the previous set wholesale; an empty result means none are current.
func (s *Session) Overlays() []models.NormalizedDetection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NormalizedDetection, len(s.overlays))
	copy(out, s.overlays)
	return out
}

// Run connects and pumps messages until ctx is cancelled. Connection loss
// moves the session to Reconnecting and retries after the fixed delay,
// indefinitely; cancellation during the delay aborts the pending attempt.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			s.setState(StateClosed)
			return nil
		}

		s.setState(StateConnecting)
		t, err := s.opts.Dialer.Dial(ctx, s.url)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateClosed)
				return nil
			}
			s.log.Warn().Err(err).Dur("retry_in", s.opts.ReconnectDelay).Msg("Connect failed")
			if !s.waitReconnect(ctx) {
				return nil
			}
			continue
		}

		s.setState(StateOpen)
		s.log.Info().Msg("Connected to stream")

		err = s.readLoop(ctx, t)
		t.Close()
		s.clearOverlays()

		if ctx.Err() != nil {
			s.setState(StateClosed)
			return nil
		}
		s.log.Warn().Err(err).Dur("retry_in", s.opts.ReconnectDelay).Msg("Connection lost")
		if !s.waitReconnect(ctx) {
			return nil
		}
	}
}

// waitReconnect sleeps the fixed delay in the Reconnecting state. It
// returns false when the context ends first, leaving the session Closed
// with no attempt pending.
func (s *Session) waitReconnect(ctx context.Context) bool {
	s.setState(StateReconnecting)
	timer := time.NewTimer(s.opts.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.setState(StateClosed)
		return false
	case <-timer.C:
		return true
	}
}

func (s *Session) readLoop(ctx context.Context, t Transport) error {
	// Unblock ReadMessage when the context ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			t.Close()
		case <-stop:
		}
	}()

	for {
		raw, err := t.ReadMessage()
		if err != nil {
			return err
		}

		var msg models.WireMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Warn().Err(err).Msg("Undecodable message, skipping")
			continue
		}
		s.handle(msg)
	}
}

func (s *Session) handle(msg models.WireMessage) {
	switch msg.Type {
	case models.MessageTypeConnected:
		s.log.Debug().Msg("Stream handshake acknowledged")

	case models.MessageTypeFrame:
		jpeg, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			s.log.Warn().Err(err).Msg("Bad frame encoding, skipping")
			return
		}
		now := time.Now()

		s.mu.Lock()
		s.window = append(s.window, now)
		fps := float64(s.trimWindow(now))
		overlays := make([]models.NormalizedDetection, len(s.overlays))
		copy(overlays, s.overlays)
		s.mu.Unlock()

		ts := now
		if parsed, err := time.Parse(time.RFC3339Nano, msg.Timestamp); err == nil {
			ts = parsed
		}
		s.renderer.RenderFrame(RenderedFrame{
			CameraID:  msg.CameraID,
			Sequence:  msg.FrameCount,
			JPEG:      jpeg,
			Overlays:  overlays,
			Timestamp: ts,
			FPS:       fps,
		})

	case models.MessageTypeAI:
		dets := normalizer.Normalize(msg.Payload)
		s.mu.Lock()
		s.overlays = dets
		s.mu.Unlock()

	case models.MessageTypeUnavailable:
		s.log.Warn().Msg("Camera source lost")
		s.renderer.SourceUnavailable(msg.CameraID)

	case models.MessageTypeError:
		s.log.Error().Str("message", msg.Message).Msg("Server reported an error")

	default:
		s.log.Debug().Str("type", msg.Type).Msg("Unknown message type, ignoring")
	}
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	changed := s.state != next && s.state != StateClosed
	if changed {
		s.state = next
	}
	s.mu.Unlock()
	if changed {
		s.renderer.StateChanged(next)
	}
}

func (s *Session) clearOverlays() {
	s.mu.Lock()
	s.overlays = nil
	s.mu.Unlock()
}

// trimWindow drops timestamps older than the FPS window and returns the
// remaining count. Caller holds s.mu.
func (s *Session) trimWindow(now time.Time) int {
	cutoff := now.Add(-fpsWindow)
	i := 0
	for i < len(s.window) && s.window[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		s.window = append(s.window[:0], s.window[i:]...)
	}
	return len(s.window)
}
