package normalizer

import (
	"encoding/json"
	"math"
	"testing"

	"videobase-go/internal/models"
)

func normalizeJSON(t *testing.T, payload string) []models.NormalizedDetection {
	t.Helper()
	return Normalize(json.RawMessage(payload))
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.0005
}

func assertBox(t *testing.T, got models.Box, x, y, w, h float64) {
	t.Helper()
	if !approxEqual(got.X, x) || !approxEqual(got.Y, y) ||
		!approxEqual(got.Width, w) || !approxEqual(got.Height, h) {
		t.Errorf("box = %+v, want {%v %v %v %v}", got, x, y, w, h)
	}
}

// TestHailoDualArrayForm covers the boxes+labels producer dialect with an
// explicit resolution.
func TestHailoDualArrayForm(t *testing.T) {
	dets := normalizeJSON(t, `{
		"boxes": [[100, 50, 40, 40, 0, 0.91]],
		"labels": ["person"],
		"resolution": [1280, 720]
	}`)

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	if dets[0].Label != "person" {
		t.Errorf("label = %q, want person", dets[0].Label)
	}
	if dets[0].Confidence == nil || !approxEqual(*dets[0].Confidence, 0.91) {
		t.Errorf("confidence = %v, want 0.91", dets[0].Confidence)
	}
	assertBox(t, dets[0].Box, 0.078, 0.069, 0.031, 0.056)
}

// TestPixelDivisionByResolution verifies that pixel coordinates divide by
// the declared resolution exactly.
func TestPixelDivisionByResolution(t *testing.T) {
	dets := normalizeJSON(t, `{
		"boxes": [[320, 180, 640, 360]],
		"labels": ["cat"],
		"resolution": [640, 360]
	}`)

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	assertBox(t, dets[0].Box, 0.5, 0.5, 1, 1)
}

// TestAlreadyNormalizedIdempotence verifies that a box already in [0,1]
// with no resolution field passes through unchanged.
func TestAlreadyNormalizedIdempotence(t *testing.T) {
	dets := normalizeJSON(t, `{
		"detections": [{"bbox": [0.1, 0.2, 0.3, 0.4], "label": "dog", "confidence": 0.5}]
	}`)

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	assertBox(t, dets[0].Box, 0.1, 0.2, 0.3, 0.4)
	if dets[0].Confidence == nil || *dets[0].Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", dets[0].Confidence)
	}
}

// TestCornerFormClampedToUnitFrame documents the clamp-not-reject policy:
// pixel corners with no resolution are treated as normalized and clamped.
func TestCornerFormClampedToUnitFrame(t *testing.T) {
	dets := normalizeJSON(t, `{
		"detections": [{"x1": 10, "y1": 10, "x2": 110, "y2": 60}]
	}`)

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	assertBox(t, dets[0].Box, 1, 1, 1, 1)
	if dets[0].Confidence != nil {
		t.Errorf("confidence = %v, want nil", dets[0].Confidence)
	}
	if dets[0].Label != "object-0" {
		t.Errorf("label = %q, want object-0", dets[0].Label)
	}
}

// TestCornerFormWithResolution derives width/height by subtraction before
// dividing by the reference frame.
func TestCornerFormWithResolution(t *testing.T) {
	dets := normalizeJSON(t, `{
		"width": 200,
		"height": 100,
		"detections": [{"x1": 20, "y1": 10, "x2": 120, "y2": 60, "label": "truck"}]
	}`)

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	assertBox(t, dets[0].Box, 0.1, 0.1, 0.5, 0.5)
}

func TestNamedFieldAliases(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"x_y_width_height", `{"width": 100, "height": 100,
			"detections": [{"x": 10, "y": 20, "width": 30, "height": 40}]}`},
		{"left_top", `{"width": 100, "height": 100,
			"detections": [{"left": 10, "top": 20, "width": 30, "height": 40}]}`},
		{"min_corner", `{"width": 100, "height": 100,
			"detections": [{"x_min": 10, "y_min": 20, "width": 30, "height": 40}]}`},
		{"one_corner", `{"width": 100, "height": 100,
			"detections": [{"x1": 10, "y1": 20, "width": 30, "height": 40}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dets := normalizeJSON(t, tc.payload)
			if len(dets) != 1 {
				t.Fatalf("got %d detections, want 1", len(dets))
			}
			assertBox(t, dets[0].Box, 0.1, 0.2, 0.3, 0.4)
		})
	}
}

// TestCenterForm converts cx/cy center+size boxes to top-left origin.
func TestCenterForm(t *testing.T) {
	dets := normalizeJSON(t, `{
		"width": 100, "height": 100,
		"detections": [{"cx": 50, "cy": 50, "width": 20, "height": 40, "label": "bus"}]
	}`)

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	assertBox(t, dets[0].Box, 0.4, 0.3, 0.2, 0.4)
}

// TestMalformedEntriesSkipped verifies per-entry skip: invalid entries are
// omitted without aborting the rest of the list.
func TestMalformedEntriesSkipped(t *testing.T) {
	dets := normalizeJSON(t, `{
		"resolution": [100, 100],
		"boxes": [
			[10, 10, 20, 20, 0, 0.9],
			["bad", 10, 20, 20],
			[5],
			[30, 30, 10, 10, 1, 0.8]
		],
		"labels": ["a", "b", "c", "d"]
	}`)

	if len(dets) != 2 {
		t.Fatalf("got %d detections, want 2", len(dets))
	}
	if dets[0].Label != "a" || dets[1].Label != "d" {
		t.Errorf("labels = %q, %q; want a, d (source order preserved)", dets[0].Label, dets[1].Label)
	}
}

func TestOutputNeverExceedsInput(t *testing.T) {
	dets := normalizeJSON(t, `{
		"detections": [{"bbox": [0.1, 0.1, 0.1, 0.1]}, {"junk": true}, 42, null]
	}`)
	if len(dets) > 4 {
		t.Fatalf("got %d detections from 4 entries", len(dets))
	}
	if len(dets) != 1 {
		t.Errorf("got %d detections, want 1", len(dets))
	}
}

func TestConfidencePercentageScaling(t *testing.T) {
	dets := normalizeJSON(t, `{
		"resolution": [100, 100],
		"boxes": [[10, 10, 20, 20, 0, 91]],
		"labels": ["person"]
	}`)

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	if dets[0].Confidence == nil || !approxEqual(*dets[0].Confidence, 0.91) {
		t.Errorf("confidence = %v, want 0.91 (91%% scaled down)", dets[0].Confidence)
	}
}

func TestGarbagePayloads(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`[]`,
		`{}`,
		`{"boxes": "nope"}`,
		`{"detections": {}}`,
		`null`,
	} {
		if dets := normalizeJSON(t, payload); len(dets) != 0 {
			t.Errorf("payload %q produced %d detections, want 0", payload, len(dets))
		}
	}
}

// TestDeterminism: same input, same output, same order.
func TestDeterminism(t *testing.T) {
	payload := `{
		"resolution": [640, 480],
		"boxes": [[10, 10, 20, 20, 0, 0.5], [30, 40, 50, 60, 2, 0.7]],
		"labels": ["one", "two"]
	}`

	first := normalizeJSON(t, payload)
	for i := 0; i < 10; i++ {
		again := normalizeJSON(t, payload)
		if len(again) != len(first) {
			t.Fatalf("run %d: got %d detections, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].Label != first[j].Label || again[j].Box != first[j].Box {
				t.Fatalf("run %d: detection %d differs: %+v vs %+v", i, j, again[j], first[j])
			}
		}
	}
}
