// Package detect runs object detection on encoded frames with an OpenCV
// DNN and formats the results as the compact payload the detection inlet
// expects. It backs the standalone ingest binary; the server itself never
// runs inference.
package detect

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const defaultThreshold = 0.5

// Detection is one detected object in pixel coordinates.
type Detection struct {
	Label      string
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
}

// Detector wraps an SSD-style DNN loaded from model + config files.
// Detect is serialized; gocv nets are not safe for concurrent Forward.
type Detector struct {
	mu        sync.Mutex
	net       gocv.Net
	threshold float64
	log       zerolog.Logger
}

// New loads the network. Both files must exist; a missing model is a hard
// error since the ingest binary exists to produce detections.
func New(modelPath, configPath string, threshold float64, logger zerolog.Logger) (*Detector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, fmt.Errorf("set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("set network target: %w", err)
	}

	if threshold <= 0 || threshold >= 1 {
		threshold = defaultThreshold
	}

	logger.Info().Str("model", modelPath).Float64("threshold", threshold).
		Msg("Detection network initialized")

	return &Detector{
		net:       net,
		threshold: threshold,
		log:       logger,
	}, nil
}

// Detect runs one inference over a JPEG frame and returns the detections
// plus the frame resolution.
func (d *Detector) Detect(jpeg []byte) ([]Detection, int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mat, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, 0, 0, fmt.Errorf("decoded frame is empty")
	}

	w, h := mat.Cols(), mat.Rows()

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	var results []Detection

	// SSD output rows: [batch, class, confidence, x1, y1, x2, y2] in
	// relative coordinates.
	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := float64(reshaped.GetFloatAt(i, 2))
		if confidence < d.threshold {
			continue
		}
		classID := int(reshaped.GetFloatAt(i, 1))
		x := int(reshaped.GetFloatAt(i, 3) * float32(w))
		y := int(reshaped.GetFloatAt(i, 4) * float32(h))
		x2 := int(reshaped.GetFloatAt(i, 5) * float32(w))
		y2 := int(reshaped.GetFloatAt(i, 6) * float32(h))

		results = append(results, Detection{
			Label:      classLabel(classID),
			Confidence: confidence,
			X:          x,
			Y:          y,
			Width:      x2 - x,
			Height:     y2 - y,
		})
	}

	return results, w, h, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

var cocoLabels = map[int]string{
	1:  "person",
	2:  "bicycle",
	3:  "car",
	4:  "motorcycle",
	5:  "airplane",
	6:  "bus",
	7:  "train",
	8:  "truck",
	16: "bird",
	17: "cat",
	18: "dog",
}

func classLabel(classID int) string {
	if label, ok := cocoLabels[classID]; ok {
		return label
	}
	return fmt.Sprintf("class-%d", classID)
}
