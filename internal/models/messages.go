package models

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Wire message types sent to viewer clients over the per-camera WebSocket.
const (
	MessageTypeFrame       = "frame"
	MessageTypeAI          = "ai"
	MessageTypeConnected   = "connected"
	MessageTypeUnavailable = "unavailable"
	MessageTypeError       = "error"
)

// WireMessage is the JSON envelope for every server-to-client message.
// Frame payloads are base64 JPEG inline; AI payloads are forwarded raw.
type WireMessage struct {
	Type       string          `json:"type"`
	CameraID   string          `json:"camera_id,omitempty"`
	Data       string          `json:"data,omitempty"`
	FrameCount uint64          `json:"frame_count,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// NewFrameMessage wraps a Frame event for the wire.
func NewFrameMessage(f Frame) WireMessage {
	return WireMessage{
		Type:       MessageTypeFrame,
		CameraID:   f.CameraID,
		Data:       base64.StdEncoding.EncodeToString(f.Payload),
		FrameCount: f.Sequence,
		Timestamp:  f.CapturedAt.Format(time.RFC3339Nano),
	}
}

// NewDetectionMessage wraps a Detection event for the wire.
func NewDetectionMessage(d Detection) WireMessage {
	return WireMessage{
		Type:      MessageTypeAI,
		CameraID:  d.CameraID,
		Payload:   d.Payload,
		Timestamp: d.ReceivedAt.Format(time.RFC3339Nano),
	}
}

// NewConnectedMessage is the handshake acknowledgement sent on accept.
func NewConnectedMessage(cameraID string) WireMessage {
	return WireMessage{Type: MessageTypeConnected, CameraID: cameraID}
}

// NewUnavailableMessage signals a terminally lost ingest source.
func NewUnavailableMessage(cameraID string) WireMessage {
	return WireMessage{Type: MessageTypeUnavailable, CameraID: cameraID}
}

// NewErrorMessage reports a camera-scoped error to the client.
func NewErrorMessage(message string) WireMessage {
	return WireMessage{Type: MessageTypeError, Message: message}
}
