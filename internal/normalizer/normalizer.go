// Package normalizer reduces heterogeneous detection payloads to the
// canonical bounding-box form. Inference producers disagree on almost
// everything: pixel corners vs center+size, absolute vs normalized
// coordinates, dual parallel arrays vs per-detection objects. A single
// ordered set of extraction strategies folds all of them into
// models.NormalizedDetection without per-producer code paths.
//
// Normalize is deterministic and side-effect free. Malformed entries are
// skipped, never fatal; output order follows input order so render keys
// stay stable.
package normalizer

import (
	"encoding/json"
	"fmt"
	"math"

	"videobase-go/internal/models"
)

// Normalize converts one raw detection payload into canonical detections.
// It never returns an error: a payload that is not a JSON object, or an
// object with no recognizable detection list, yields an empty slice.
func Normalize(payload json.RawMessage) []models.NormalizedDetection {
	var root map[string]interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil
	}
	return NormalizeValue(root)
}

// NormalizeValue is Normalize for an already-decoded payload.
func NormalizeValue(root map[string]interface{}) []models.NormalizedDetection {
	if root == nil {
		return nil
	}

	refW, refH := referenceSize(root)

	// Dual-array dialect first: boxes as [x,y,w,h,class,confidence] tuples
	// with a parallel labels array (the Hailo producer format).
	if boxes, ok := root["boxes"].([]interface{}); ok {
		labels, _ := root["labels"].([]interface{})
		return normalizeTuples(boxes, labels, refW, refH)
	}

	// Fall back to a list of per-detection objects.
	for _, key := range []string{"detections", "objects", "results"} {
		if list, ok := root[key].([]interface{}); ok {
			return normalizeObjects(list, refW, refH)
		}
	}

	return nil
}

// referenceSize resolves the coordinate reference frame. An explicit
// resolution field wins; discrete width/height fields come next; otherwise
// a unit frame, which treats values as already normalized.
func referenceSize(root map[string]interface{}) (float64, float64) {
	if res, ok := root["resolution"].([]interface{}); ok && len(res) >= 2 {
		w, wok := asNumber(res[0])
		h, hok := asNumber(res[1])
		if wok && hok && w > 0 && h > 0 {
			return w, h
		}
	}

	w, wok := asNumber(root["width"])
	h, hok := asNumber(root["height"])
	if wok && hok && w > 0 && h > 0 {
		return w, h
	}

	return 1, 1
}

func normalizeTuples(boxes, labels []interface{}, refW, refH float64) []models.NormalizedDetection {
	out := make([]models.NormalizedDetection, 0, len(boxes))

	for i, raw := range boxes {
		tuple, ok := raw.([]interface{})
		if !ok || len(tuple) < 4 {
			continue
		}

		x, xok := asNumber(tuple[0])
		y, yok := asNumber(tuple[1])
		w, wok := asNumber(tuple[2])
		h, hok := asNumber(tuple[3])
		if !xok || !yok || !wok || !hok {
			continue
		}

		det := models.NormalizedDetection{
			Label: tupleLabel(labels, i),
			Box:   normalizeBox(x, y, w, h, refW, refH),
		}
		if len(tuple) >= 6 {
			if conf, ok := asNumber(tuple[5]); ok {
				det.Confidence = scaleConfidence(conf)
			}
		}
		out = append(out, det)
	}

	return out
}

func normalizeObjects(list []interface{}, refW, refH float64) []models.NormalizedDetection {
	out := make([]models.NormalizedDetection, 0, len(list))

	for i, raw := range list {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		x, y, w, h, ok := extractBox(entry)
		if !ok {
			continue
		}

		det := models.NormalizedDetection{
			Label: objectLabel(entry, i),
			Box:   normalizeBox(x, y, w, h, refW, refH),
		}
		for _, key := range []string{"confidence", "score", "conf"} {
			if conf, ok := asNumber(entry[key]); ok {
				det.Confidence = scaleConfidence(conf)
				break
			}
		}
		out = append(out, det)
	}

	return out
}

// extractBox tries the known object-form encodings in priority order:
// a 4-number bbox array, named x/y/width/height (with left/top, x_min/y_min,
// x1/y1 and cx/cy center aliases), then corner pairs from which width and
// height are derived by subtraction.
func extractBox(entry map[string]interface{}) (x, y, w, h float64, ok bool) {
	for _, key := range []string{"bbox", "box"} {
		if arr, isArr := entry[key].([]interface{}); isArr && len(arr) >= 4 {
			x, xok := asNumber(arr[0])
			y, yok := asNumber(arr[1])
			w, wok := asNumber(arr[2])
			h, hok := asNumber(arr[3])
			if xok && yok && wok && hok {
				return x, y, w, h, true
			}
		}
	}

	width, hasWidth := firstNumber(entry, "width", "w")
	height, hasHeight := firstNumber(entry, "height", "h")

	if hasWidth && hasHeight {
		// Center form takes priority over top-left aliases when present.
		if cx, okX := firstNumber(entry, "cx", "x_center", "center_x"); okX {
			if cy, okY := firstNumber(entry, "cy", "y_center", "center_y"); okY {
				return cx - width/2, cy - height/2, width, height, true
			}
		}
		if left, okX := firstNumber(entry, "x", "left", "x_min", "x1"); okX {
			if top, okY := firstNumber(entry, "y", "top", "y_min", "y1"); okY {
				return left, top, width, height, true
			}
		}
	}

	// Corner pairs: (x1,y1)-(x2,y2).
	left, okLeft := firstNumber(entry, "x1", "x_min", "left", "x")
	top, okTop := firstNumber(entry, "y1", "y_min", "top", "y")
	right, okRight := firstNumber(entry, "x2", "x_max", "right")
	bottom, okBottom := firstNumber(entry, "y2", "y_max", "bottom")
	if okLeft && okTop && okRight && okBottom {
		return left, top, right - left, bottom - top, true
	}

	return 0, 0, 0, 0, false
}

// normalizeBox divides by the reference dimension when it is meaningful
// (>1) and clamps every coordinate into [0,1]. Out-of-range values are
// clamped, never rejected.
func normalizeBox(x, y, w, h, refW, refH float64) models.Box {
	if refW > 1 {
		x /= refW
		w /= refW
	}
	if refH > 1 {
		y /= refH
		h /= refH
	}
	return models.Box{
		X:      clamp01(x),
		Y:      clamp01(y),
		Width:  clamp01(w),
		Height: clamp01(h),
	}
}

// scaleConfidence maps a producer confidence onto [0,1]. Values above 1 are
// integer percentages (the Hailo producer sends int(conf*100)).
func scaleConfidence(v float64) *float64 {
	if v > 1 {
		v /= 100
	}
	v = clamp01(v)
	return &v
}

func tupleLabel(labels []interface{}, index int) string {
	if index < len(labels) {
		if s, ok := labels[index].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("object-%d", index)
}

func objectLabel(entry map[string]interface{}, index int) string {
	for _, key := range []string{"label", "class_name", "class", "name"} {
		if s, ok := entry[key].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("object-%d", index)
}

func firstNumber(entry map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := asNumber(entry[key]); ok {
			return v, true
		}
	}
	return 0, false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
