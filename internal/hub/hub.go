// Package hub fans camera events out to viewer subscriptions. One Hub
// serves every camera; internally the subscriber registry is sharded by
// camera id so publishing to one camera never contends with another.
//
// Each subscription owns two bounded queues: frames, with drop-oldest
// backpressure, and events (detections plus status signals), which are
// rare and high-value and therefore never compete with frame pressure.
// Publish never blocks on a slow consumer.
package hub

import (
	"hash/fnv"
	"sync"

	"videobase-go/internal/metrics"
	"videobase-go/internal/models"
)

const shardCount = 16

// Hub is the broadcast component multiplexing per-camera event streams to
// any number of viewer subscriptions.
type Hub struct {
	shards     [shardCount]shard
	frameQueue int
	eventQueue int

	mu     sync.Mutex
	closed bool
}

type shard struct {
	mu      sync.RWMutex
	cameras map[string]map[*Subscription]struct{}
}

// Options tune per-subscription queue depths. Zero values fall back to
// defaults (8 frames, 32 events).
type Options struct {
	FrameQueueSize int
	EventQueueSize int
}

// New creates an empty hub.
func New(opts Options) *Hub {
	if opts.FrameQueueSize <= 0 {
		opts.FrameQueueSize = 8
	}
	if opts.EventQueueSize <= 0 {
		opts.EventQueueSize = 32
	}

	h := &Hub{
		frameQueue: opts.FrameQueueSize,
		eventQueue: opts.EventQueueSize,
	}
	for i := range h.shards {
		h.shards[i].cameras = make(map[string]map[*Subscription]struct{})
	}
	return h
}

func (h *Hub) shardFor(cameraID string) *shard {
	f := fnv.New32a()
	f.Write([]byte(cameraID))
	return &h.shards[f.Sum32()%shardCount]
}

// Subscribe registers a new viewer sink for a camera. It always succeeds,
// even when the camera has no active ingest adapter yet; events simply do
// not arrive until ingest starts. The returned subscription must be
// released with Unsubscribe.
func (h *Hub) Subscribe(cameraID string) *Subscription {
	sub := &Subscription{
		cameraID: cameraID,
		frames:   make(chan models.Frame, h.frameQueue),
		events:   make(chan models.Event, h.eventQueue),
		done:     make(chan struct{}),
	}

	s := h.shardFor(cameraID)
	s.mu.Lock()
	set, ok := s.cameras[cameraID]
	if !ok {
		set = make(map[*Subscription]struct{})
		s.cameras[cameraID] = set
	}
	set[sub] = struct{}{}
	s.mu.Unlock()

	metrics.Viewers.WithLabelValues(cameraID).Inc()
	return sub
}

// Unsubscribe removes a sink and releases its queues. Idempotent and safe
// to call concurrently with an in-flight Publish; once it returns, no new
// events reach the subscription.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.closeOnce.Do(func() {
		s := h.shardFor(sub.cameraID)
		s.mu.Lock()
		if set, ok := s.cameras[sub.cameraID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(s.cameras, sub.cameraID)
			}
		}
		s.mu.Unlock()

		close(sub.done)
		metrics.Viewers.WithLabelValues(sub.cameraID).Dec()
	})
}

// Publish delivers an event to every current subscriber of its camera.
// It never blocks: frame queues apply drop-oldest, event queues do the
// same within their own stream. A closed hub drops everything.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	cameraID := ev.Camera()
	s := h.shardFor(cameraID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := s.cameras[cameraID]
	switch e := ev.(type) {
	case models.Frame:
		metrics.FramesPublished.WithLabelValues(cameraID).Inc()
		for sub := range subs {
			sub.offerFrame(e)
		}
	default:
		if _, isDetection := ev.(models.Detection); isDetection {
			metrics.DetectionsPublished.WithLabelValues(cameraID).Inc()
		}
		for sub := range subs {
			sub.offerEvent(ev)
		}
	}
}

// SubscriberCount reports the live subscriptions for one camera.
func (h *Hub) SubscriberCount(cameraID string) int {
	s := h.shardFor(cameraID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cameras[cameraID])
}

// Close stops all future publishes. Existing subscriptions remain valid
// until unsubscribed; they just stop receiving.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}
