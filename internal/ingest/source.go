package ingest

import "context"

// FrameSource abstracts the external media pipeline feeding one camera.
// Read returns the next encoded JPEG frame; implementations block until a
// frame is available, the source fails, or ctx is cancelled.
type FrameSource interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}
