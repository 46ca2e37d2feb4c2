package models

// Box is an axis-aligned bounding box with top-left origin. All coordinates
// are normalized to [0,1] relative to the frame.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NormalizedDetection is the canonical form every raw detection payload is
// reduced to before rendering. Confidence is nil when the producer did not
// report one. Values are never mutated after construction.
type NormalizedDetection struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	Box        Box      `json:"box"`
}
