package hub

import (
	"sync"
	"sync/atomic"

	"videobase-go/internal/metrics"
	"videobase-go/internal/models"
)

// Subscription is one viewer's sink for a single camera. The hub holds it
// only for delivery and teardown; all viewer-side state (connection
// lifecycle, FPS counters) lives with the session that owns it.
type Subscription struct {
	cameraID string

	frames chan models.Frame
	events chan models.Event
	done   chan struct{}

	closeOnce     sync.Once
	droppedFrames atomic.Uint64
}

// CameraID returns the camera this subscription is bound to.
func (s *Subscription) CameraID() string { return s.cameraID }

// Frames is the bounded frame queue. Under backpressure the oldest unsent
// frame is discarded first, so a reader always observes increasing
// sequence numbers with gaps, never reorderings.
func (s *Subscription) Frames() <-chan models.Frame { return s.frames }

// Events carries detections and camera status signals, ordered as
// produced. Logically independent from the frame stream.
func (s *Subscription) Events() <-chan models.Event { return s.events }

// Done is closed by Unsubscribe. After it closes, queued items may still
// be drained but nothing new arrives.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// DroppedFrames reports how many frames backpressure discarded so far.
func (s *Subscription) DroppedFrames() uint64 { return s.droppedFrames.Load() }

// offerFrame enqueues without blocking. When the queue is full the oldest
// frame is discarded to admit the new one; if a concurrent reader races us
// for the slot the new frame is dropped instead, which is equivalent under
// the freshness-over-completeness contract.
func (s *Subscription) offerFrame(f models.Frame) {
	select {
	case s.frames <- f:
		return
	default:
	}

	select {
	case <-s.frames:
		s.droppedFrames.Add(1)
		metrics.FramesDropped.WithLabelValues(s.cameraID).Inc()
	default:
	}

	select {
	case s.frames <- f:
	default:
		s.droppedFrames.Add(1)
		metrics.FramesDropped.WithLabelValues(s.cameraID).Inc()
	}
}

// offerEvent applies the same drop-oldest policy within the event queue
// only. Frame pressure can never evict a detection or status signal.
func (s *Subscription) offerEvent(ev models.Event) {
	select {
	case s.events <- ev:
		return
	default:
	}

	select {
	case <-s.events:
	default:
	}

	select {
	case s.events <- ev:
	default:
	}
}
