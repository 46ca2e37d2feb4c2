package models

import (
	"fmt"
	"strings"
	"time"
)

// CameraConfig identifies one configured camera. Cameras are configured,
// never discovered; the set is immutable for the process lifetime.
type CameraConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"rtsp_url"`
}

// ParseCameraList parses the CAMERAS env value. Entries are separated by
// semicolons, fields by commas: "id,display name,rtsp url;...".
func ParseCameraList(raw string) ([]CameraConfig, error) {
	var cameras []CameraConfig
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.SplitN(entry, ",", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid camera entry %q: want id,name,url", entry)
		}
		id := strings.TrimSpace(fields[0])
		if id == "" {
			return nil, fmt.Errorf("invalid camera entry %q: empty id", entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate camera id %q", id)
		}
		seen[id] = true
		cameras = append(cameras, CameraConfig{
			ID:   id,
			Name: strings.TrimSpace(fields[1]),
			URL:  strings.TrimSpace(fields[2]),
		})
	}

	if len(cameras) == 0 {
		return nil, fmt.Errorf("no cameras configured")
	}
	return cameras, nil
}

// CameraStatus is the per-camera snapshot exposed on / and /health.
type CameraStatus struct {
	Name       string    `json:"name"`
	Connected  bool      `json:"connected"`
	FrameCount uint64    `json:"frame_count"`
	Clients    int       `json:"clients"`
	LastFrame  time.Time `json:"last_frame,omitempty"`
}
