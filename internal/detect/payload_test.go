package detect

import (
	"encoding/json"
	"testing"

	"videobase-go/internal/normalizer"
)

func TestFormatPayloadShape(t *testing.T) {
	dets := []Detection{
		{Label: "person", Confidence: 0.91, X: 50, Y: 33, Width: 20, Height: 27},
		{Label: "car", Confidence: 0.6, X: 0, Y: 0, Width: 320, Height: 240},
	}

	raw, err := FormatPayload(dets, 640, 480, 42)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["count"].(float64) != 2 {
		t.Fatalf("count %v", decoded["count"])
	}
	boxes := decoded["boxes"].([]interface{})
	if len(boxes) != 2 {
		t.Fatalf("boxes %v", boxes)
	}
	first := boxes[0].([]interface{})
	if first[5].(float64) != 91 {
		t.Fatalf("confidence percent %v, want 91", first[5])
	}
	labels := decoded["labels"].([]interface{})
	if labels[0] != "person" || labels[1] != "car" {
		t.Fatalf("labels %v", labels)
	}
}

// The formatted payload must round-trip through the render-side dialect
// normalization: pixel tuples divided by the resolution, confidence
// percents scaled back to fractions, labels matched by position.
func TestFormatPayloadNormalizes(t *testing.T) {
	dets := []Detection{
		{Label: "person", Confidence: 0.91, X: 64, Y: 48, Width: 64, Height: 96},
	}
	raw, err := FormatPayload(dets, 640, 480, 0)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	norm := normalizer.Normalize(raw)
	if len(norm) != 1 {
		t.Fatalf("normalized %d detections, want 1", len(norm))
	}
	d := norm[0]
	if d.Label != "person" {
		t.Fatalf("label %q", d.Label)
	}
	if d.Confidence == nil || *d.Confidence != 0.91 {
		t.Fatalf("confidence %v", d.Confidence)
	}
	if d.Box.X != 0.1 || d.Box.Y != 0.1 || d.Box.Width != 0.1 || d.Box.Height != 0.2 {
		t.Fatalf("box %+v", d.Box)
	}
}

func TestFormatPayloadEmpty(t *testing.T) {
	raw, err := FormatPayload(nil, 640, 480, 0)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Count != 0 || len(p.Boxes) != 0 {
		t.Fatalf("expected empty payload, got %+v", p)
	}
	if len(p.Perf) != 0 {
		t.Fatalf("perf should be omitted when millis is 0: %+v", p.Perf)
	}
}
