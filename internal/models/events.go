package models

import (
	"encoding/json"
	"time"
)

// Event is anything the hub fans out to viewer subscriptions.
type Event interface {
	Camera() string
}

// Frame is one encoded video frame from a camera's ingest adapter.
// Sequence is strictly increasing per camera while the adapter is alive;
// drops create gaps, never reorderings. Frames are transient and never
// persisted.
type Frame struct {
	CameraID   string
	Sequence   uint64
	Payload    []byte // encoded JPEG
	CapturedAt time.Time
}

func (f Frame) Camera() string { return f.CameraID }

// Detection carries one raw inference payload. The payload shape varies by
// producer and is normalized only at render time; frames and detections are
// independently timestamped streams.
type Detection struct {
	CameraID   string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

func (d Detection) Camera() string { return d.CameraID }

// StatusKind classifies camera-level status transitions.
type StatusKind string

const (
	// StatusSourceLost is the terminal signal published when an ingest
	// adapter gives up after its retry budget is exhausted.
	StatusSourceLost StatusKind = "source_lost"
	// StatusSourceUp is published when the frame source (re)opens.
	StatusSourceUp StatusKind = "source_up"
)

// Status is a camera-level availability signal, delivered on the same
// subscription as detections so slow frame consumers cannot starve it.
type Status struct {
	CameraID string
	Kind     StatusKind
	At       time.Time
}

func (s Status) Camera() string { return s.CameraID }
