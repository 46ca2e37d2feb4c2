package detect

import "encoding/json"

// Payload is the compact detection message published to the per-camera
// detection inlet: pixel-space box tuples with a parallel label list, the
// inference resolution, and a perf sample.
type Payload struct {
	// Boxes holds [x, y, w, h, class, confidence-percent] tuples.
	Boxes      [][6]int   `json:"boxes"`
	Labels     []string   `json:"labels"`
	Resolution [2]int     `json:"resolution"`
	Count      int        `json:"count"`
	Perf       [][3]int64 `json:"perf,omitempty"`
}

// FormatPayload encodes detections for the wire. inferMillis is the time
// the inference took; pass 0 to omit the perf sample.
func FormatPayload(dets []Detection, width, height int, inferMillis int64) ([]byte, error) {
	p := Payload{
		Boxes:      make([][6]int, 0, len(dets)),
		Labels:     make([]string, 0, len(dets)),
		Resolution: [2]int{width, height},
		Count:      len(dets),
	}

	for i, d := range dets {
		p.Boxes = append(p.Boxes, [6]int{
			d.X, d.Y, d.Width, d.Height, i, int(d.Confidence * 100),
		})
		p.Labels = append(p.Labels, d.Label)
	}

	if inferMillis > 0 {
		p.Perf = [][3]int64{{0, inferMillis, int64(len(dets))}}
	}

	return json.Marshal(p)
}
