// Package metrics exposes Prometheus instrumentation for the hub and the
// ingest adapters. Everything is registered on the default registry and
// served on /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesPublished counts frames fanned out per camera.
	FramesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobase",
		Name:      "frames_published_total",
		Help:      "Frames published into the hub, per camera.",
	}, []string{"camera"})

	// FramesDropped counts frames discarded by drop-oldest backpressure.
	// Not an error condition: freshness beats completeness.
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobase",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped from slow subscriber queues, per camera.",
	}, []string{"camera"})

	// DetectionsPublished counts AI payloads fanned out per camera.
	DetectionsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobase",
		Name:      "detections_published_total",
		Help:      "Detection payloads published into the hub, per camera.",
	}, []string{"camera"})

	// Viewers tracks live subscriptions per camera.
	Viewers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "videobase",
		Name:      "viewers",
		Help:      "Active viewer subscriptions, per camera.",
	}, []string{"camera"})

	// IngestRestarts counts frame source reopen attempts per camera.
	IngestRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobase",
		Name:      "ingest_restarts_total",
		Help:      "Frame source reconnect attempts, per camera.",
	}, []string{"camera"})
)
