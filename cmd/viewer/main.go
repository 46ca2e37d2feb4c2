// Command viewer is a headless stream client: it attaches to one camera on
// a Videobase server, reconnects automatically, and logs frame rate and
// detection overlays. Useful for soak-testing a server without a browser.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"videobase-go/internal/session"
)

func main() {
	var (
		server   = flag.String("server", "ws://localhost:9200", "Videobase server base URL")
		cameraID = flag.String("camera-id", "", "camera to watch (empty = server default)")
		delay    = flag.Duration("reconnect-delay", 3*time.Second, "delay between reconnect attempts")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger := log.With().Str("camera_id", *cameraID).Logger()

	s, err := session.New(session.Options{
		ServerURL:      *server,
		CameraID:       *cameraID,
		ReconnectDelay: *delay,
	}, &logRenderer{log: logger}, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("Shutdown signal received")
		cancel()
	}()

	if err := s.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Session failed")
	}
	logger.Info().Msg("Session closed")
}

// logRenderer reports the stream to the log instead of a screen. Frames
// are summarized once a second to keep the output readable.
type logRenderer struct {
	log        zerolog.Logger
	lastReport time.Time
}

func (r *logRenderer) RenderFrame(f session.RenderedFrame) {
	if time.Since(r.lastReport) < time.Second {
		return
	}
	r.lastReport = time.Now()

	labels := make([]string, 0, len(f.Overlays))
	for _, d := range f.Overlays {
		labels = append(labels, d.Label)
	}
	r.log.Info().
		Uint64("sequence", f.Sequence).
		Int("bytes", len(f.JPEG)).
		Float64("fps", f.FPS).
		Strs("labels", labels).
		Msg("Frame")
}

func (r *logRenderer) SourceUnavailable(cameraID string) {
	r.log.Warn().Str("camera_id", cameraID).Msg("Camera source lost")
}

func (r *logRenderer) StateChanged(s session.State) {
	r.log.Info().Str("state", string(s)).Msg("Session state changed")
}
