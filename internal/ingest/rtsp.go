package ingest

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// RTSPSource reads frames from an RTSP stream through OpenCV's FFmpeg
// backend and re-encodes them as JPEG. One instance serves one camera.
type RTSPSource struct {
	url         string
	jpegQuality int
	fps         int

	mu       sync.Mutex
	cap      *gocv.VideoCapture
	img      gocv.Mat
	scaled   gocv.Mat
	lastRead time.Time
}

// Frames wider than this are downscaled before encoding; viewers render
// small and full-size frames cost bandwidth on every subscription.
const maxFrameWidth = 1280

// NewRTSPSource creates a source for one RTSP URL. fps caps the read rate;
// 0 reads at whatever rate the stream delivers.
func NewRTSPSource(url string, jpegQuality, fps int) *RTSPSource {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 85
	}
	return &RTSPSource{
		url:         url,
		jpegQuality: jpegQuality,
		fps:         fps,
	}
}

// Open dials the stream. TCP transport and a minimal buffer keep latency
// down, mirroring the capture options used by the media pipeline.
func (s *RTSPSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap != nil {
		return nil
	}

	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS",
		"rtsp_transport;tcp|buffer_size;1024000|max_delay;500000|stimeout;20000000")

	cap, err := gocv.OpenVideoCaptureWithAPI(s.url, gocv.VideoCaptureFFmpeg)
	if err != nil {
		return fmt.Errorf("open rtsp stream %s: %w", s.url, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("rtsp stream %s not opened", s.url)
	}

	cap.Set(gocv.VideoCaptureBufferSize, 1)

	s.cap = cap
	s.img = gocv.NewMat()
	s.scaled = gocv.NewMat()
	return nil
}

// Read pulls the next frame and returns it JPEG-encoded. A read failure is
// returned to the caller; reopen policy lives in the adapter.
func (s *RTSPSource) Read(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil, fmt.Errorf("rtsp source not open")
	}

	if s.fps > 0 {
		interval := time.Second / time.Duration(s.fps)
		if wait := interval - time.Since(s.lastRead); wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ok := s.cap.Read(&s.img); !ok || s.img.Empty() {
		return nil, fmt.Errorf("read frame from %s failed", s.url)
	}
	s.lastRead = time.Now()

	frame := s.img
	if w := s.img.Cols(); w > maxFrameWidth {
		scale := float64(maxFrameWidth) / float64(w)
		gocv.Resize(s.img, &s.scaled, image.Point{}, scale, scale, gocv.InterpolationArea)
		frame = s.scaled
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame,
		[]int{gocv.IMWriteJpegQuality, s.jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}

// Close releases the capture. The source can be reopened afterwards.
func (s *RTSPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.img.Close()
	s.scaled.Close()
	s.cap = nil
	return err
}
