// Command ingest is the standalone detection producer: it captures an RTSP
// stream, runs object detection locally, and pushes the results to a
// Videobase server's per-camera detection inlet.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"videobase-go/internal/detect"
	"videobase-go/internal/ingest"
)

const (
	reconnectDelay = 5 * time.Second
	statsEvery     = 50
)

func main() {
	var (
		cameraID   = flag.String("camera-id", "camera1", "camera id on the server")
		rtspURL    = flag.String("rtsp-url", "", "RTSP stream to analyze (required)")
		server     = flag.String("server", "ws://localhost:9200", "Videobase server base URL")
		modelPath  = flag.String("model", "models/ssd.pb", "DNN model file")
		configPath = flag.String("config", "models/ssd.pbtxt", "DNN config file")
		fps        = flag.Int("fps", 10, "inference rate cap")
		threshold  = flag.Float64("threshold", 0.5, "detection confidence threshold")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if *rtspURL == "" {
		log.Fatal().Msg("--rtsp-url is required")
	}

	logger := log.With().Str("camera_id", *cameraID).Logger()

	detector, err := detect.New(*modelPath, *configPath, *threshold, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load detection network")
	}
	defer detector.Close()

	inletURL := strings.TrimRight(*server, "/") + "/ws/" + *cameraID + "/ai"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("Shutdown signal received")
		cancel()
	}()

	source := ingest.NewRTSPSource(*rtspURL, 85, *fps)
	defer source.Close()

	run(ctx, logger, source, detector, inletURL)
}

// run captures, infers, and publishes until ctx ends. Both the RTSP source
// and the inlet connection reconnect independently.
func run(ctx context.Context, logger zerolog.Logger, source *ingest.RTSPSource, detector *detect.Detector, inletURL string) {
	var (
		conn       *websocket.Conn
		inferences int
		totalMs    int64
		totalDets  int
	)
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for ctx.Err() == nil {
		if err := source.Open(ctx); err != nil {
			logger.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("Stream open failed")
			if !sleep(ctx, reconnectDelay) {
				return
			}
			continue
		}

		frame, err := source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("Frame read failed, reopening stream")
			source.Close()
			continue
		}

		start := time.Now()
		dets, w, h, err := detector.Detect(frame)
		if err != nil {
			logger.Warn().Err(err).Msg("Inference failed, skipping frame")
			continue
		}
		elapsed := time.Since(start).Milliseconds()

		payload, err := detect.FormatPayload(dets, w, h, elapsed)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encode payload")
			continue
		}

		if conn == nil {
			conn, err = dial(ctx, inletURL)
			if err != nil {
				logger.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("Inlet connect failed")
				if !sleep(ctx, reconnectDelay) {
					return
				}
				continue
			}
			logger.Info().Str("url", inletURL).Msg("Connected to detection inlet")
		}

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn().Err(err).Msg("Inlet write failed, reconnecting")
			conn.Close()
			conn = nil
			continue
		}

		inferences++
		totalMs += elapsed
		totalDets += len(dets)
		if inferences%statsEvery == 0 {
			logger.Info().
				Int("inferences", inferences).
				Int64("avg_ms", totalMs/int64(statsEvery)).
				Int("detections", totalDets).
				Msg("Inference stats")
			totalMs = 0
			totalDets = 0
		}
	}
}

func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
