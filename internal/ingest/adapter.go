// Package ingest bridges external camera sources into the hub. One Adapter
// runs per camera: it owns the frame source lifecycle, stamps sequence
// numbers, applies bounded retry when the source fails, and accepts raw
// detection payloads from AI producers on the same camera.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"videobase-go/internal/hub"
	"videobase-go/internal/metrics"
	"videobase-go/internal/models"
	"videobase-go/internal/normalizer"
)

// ErrSourceLost is returned by Run when the retry budget is exhausted and
// the adapter has published its terminal source_lost status.
var ErrSourceLost = errors.New("frame source lost")

// Notifier forwards camera status transitions and detection alerts to an
// external bus. Implementations must tolerate being called from the ingest
// goroutine and from detection inlet handlers concurrently.
type Notifier interface {
	PublishCameraStatus(cameraID string, kind models.StatusKind) error
	PublishAlert(d models.Detection) error
}

// Options tune the adapter retry budget. Zero values fall back to defaults.
type Options struct {
	BackoffMin   time.Duration // first retry delay (default 1s)
	BackoffMax   time.Duration // delay ceiling (default 30s)
	MaxAttempts  int           // consecutive open failures before giving up (default 10)
	ReadErrorCap int           // consecutive read failures before reopening (default 10)
	JitterPct    int           // +/- percent applied to each delay (default 20)
}

func (o *Options) applyDefaults() {
	if o.BackoffMin <= 0 {
		o.BackoffMin = time.Second
	}
	if o.BackoffMax < o.BackoffMin {
		o.BackoffMax = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.ReadErrorCap <= 0 {
		o.ReadErrorCap = 10
	}
	if o.JitterPct < 0 || o.JitterPct >= 100 {
		o.JitterPct = 20
	}
}

// Adapter feeds one camera's frames and detections into the hub.
type Adapter struct {
	camera   models.CameraConfig
	source   FrameSource
	hub      *hub.Hub
	notifier Notifier
	opts     Options
	log      zerolog.Logger

	connected  atomic.Bool
	frameCount atomic.Uint64
	lastFrame  atomic.Int64 // unix nanos, 0 = never
}

// New wires an adapter for one camera. notifier may be nil when no message
// bus is configured.
func New(camera models.CameraConfig, source FrameSource, h *hub.Hub, notifier Notifier, opts Options, logger zerolog.Logger) *Adapter {
	opts.applyDefaults()
	return &Adapter{
		camera:   camera,
		source:   source,
		hub:      h,
		notifier: notifier,
		opts:     opts,
		log:      logger.With().Str("camera_id", camera.ID).Logger(),
	}
}

// Run drives the capture loop until ctx is cancelled or the retry budget
// runs out. Open failures back off exponentially with jitter; a successful
// open resets the budget. When every attempt is spent the adapter publishes
// a terminal source_lost status and returns ErrSourceLost.
func (a *Adapter) Run(ctx context.Context) error {
	defer a.source.Close()

	var seq uint64
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := a.source.Open(ctx); err != nil {
			attempts++
			metrics.IngestRestarts.WithLabelValues(a.camera.ID).Inc()
			if attempts >= a.opts.MaxAttempts {
				a.log.Error().Err(err).Int("attempts", attempts).Msg("Frame source unrecoverable, giving up")
				a.publishStatus(models.StatusSourceLost)
				return ErrSourceLost
			}

			delay := a.backoff(attempts)
			a.log.Warn().Err(err).
				Int("attempt", attempts).
				Dur("retry_in", delay).
				Msg("Frame source open failed, backing off")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}

		attempts = 0
		a.connected.Store(true)
		a.publishStatus(models.StatusSourceUp)
		a.log.Info().Msg("Frame source connected")

		err := a.readLoop(ctx, &seq)
		a.connected.Store(false)
		a.source.Close()

		if ctx.Err() != nil {
			return nil
		}
		a.log.Warn().Err(err).Msg("Frame source read loop ended, reconnecting")
	}
}

// readLoop pumps frames until ctx ends or consecutive read errors hit the
// cap. Sequence numbers are strictly increasing across reconnects.
func (a *Adapter) readLoop(ctx context.Context, seq *uint64) error {
	readErrors := 0

	for {
		payload, err := a.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			readErrors++
			if readErrors >= a.opts.ReadErrorCap {
				return fmt.Errorf("%d consecutive read failures: %w", readErrors, err)
			}
			continue
		}
		readErrors = 0

		*seq++
		now := time.Now()
		a.frameCount.Add(1)
		a.lastFrame.Store(now.UnixNano())

		a.hub.Publish(models.Frame{
			CameraID:   a.camera.ID,
			Sequence:   *seq,
			Payload:    payload,
			CapturedAt: now,
		})
	}
}

// SubmitDetection accepts one raw AI payload for this camera, fans it out,
// and forwards it to the alert bus when one is configured. The payload is
// validated as JSON but published verbatim; dialect normalization happens
// at render time. Invalid JSON is rejected so producers hear about it
// immediately instead of poisoning viewers.
func (a *Adapter) SubmitDetection(payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("detection payload is not valid JSON")
	}

	raw := json.RawMessage(append([]byte(nil), payload...))
	if dbg := a.log.Debug(); dbg.Enabled() {
		dbg.Int("detections", len(normalizer.Normalize(raw))).Msg("Detection payload received")
	}

	det := models.Detection{
		CameraID:   a.camera.ID,
		Payload:    raw,
		ReceivedAt: time.Now(),
	}
	a.hub.Publish(det)
	if a.notifier != nil {
		if err := a.notifier.PublishAlert(det); err != nil {
			a.log.Warn().Err(err).Msg("Failed to publish detection alert to message bus")
		}
	}
	return nil
}

// Snapshot reports the camera state for the health endpoints.
func (a *Adapter) Snapshot(clients int) models.CameraStatus {
	st := models.CameraStatus{
		Name:       a.camera.Name,
		Connected:  a.connected.Load(),
		FrameCount: a.frameCount.Load(),
		Clients:    clients,
	}
	if ns := a.lastFrame.Load(); ns > 0 {
		st.LastFrame = time.Unix(0, ns)
	}
	return st
}

// CameraID names the camera this adapter serves.
func (a *Adapter) CameraID() string { return a.camera.ID }

// backoff returns min * 2^(attempt-1) capped at max, with +/- JitterPct%
// jitter so simultaneous camera failures do not reconnect in lockstep.
func (a *Adapter) backoff(attempt int) time.Duration {
	d := a.opts.BackoffMin
	for i := 1; i < attempt && d < a.opts.BackoffMax; i++ {
		d *= 2
	}
	if d > a.opts.BackoffMax {
		d = a.opts.BackoffMax
	}
	if a.opts.JitterPct > 0 {
		span := int64(d) * int64(a.opts.JitterPct) / 100
		d += time.Duration(rand.Int63n(2*span+1) - span)
	}
	return d
}

func (a *Adapter) publishStatus(kind models.StatusKind) {
	a.hub.Publish(models.Status{
		CameraID: a.camera.ID,
		Kind:     kind,
		At:       time.Now(),
	})
	if a.notifier != nil {
		if err := a.notifier.PublishCameraStatus(a.camera.ID, kind); err != nil {
			a.log.Warn().Err(err).Msg("Failed to publish camera status to message bus")
		}
	}
}
