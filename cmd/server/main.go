package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"videobase-go/internal/api"
	"videobase-go/internal/config"
	"videobase-go/internal/hub"
	"videobase-go/internal/ingest"
	"videobase-go/internal/logging"
	"videobase-go/internal/services/messaging"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Optionally tee logs into the embedded Logdy UI
	if cfg.LogdyEnabled {
		if w, url, err := logging.StartLogdy(cfg); err == nil {
			log.Logger = log.Output(zerolog.MultiLevelWriter(
				zerolog.ConsoleWriter{Out: os.Stderr}, w))
			log.Info().Str("url", url).Msg("Log streaming enabled")
		} else {
			log.Warn().Err(err).Msg("Failed to start Logdy")
		}
	}

	log.Info().
		Str("server_id", cfg.ServerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Int("cameras", len(cfg.Cameras)).
		Msg("Starting Videobase server")

	// Optional NATS bus for status and alerts
	var bus *messaging.Service
	if cfg.NatsEnabled {
		bus, err = messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, continuing without messaging")
			bus = nil
		}
	}

	h := hub.New(hub.Options{
		FrameQueueSize: cfg.FrameQueueSize,
		EventQueueSize: cfg.EventQueueSize,
	})

	// One ingest adapter per configured camera
	ingestCtx, stopIngest := context.WithCancel(context.Background())
	adapters := make(map[string]*ingest.Adapter, len(cfg.Cameras))
	for _, cam := range cfg.Cameras {
		source := ingest.NewRTSPSource(cam.URL, cfg.JPEGQuality, cfg.IngestFPS)
		adapter := ingest.New(cam, source, h, notifier(bus), ingest.Options{
			BackoffMin:   cfg.IngestBackoffMin,
			BackoffMax:   cfg.IngestBackoffMax,
			MaxAttempts:  cfg.IngestMaxAttempts,
			ReadErrorCap: cfg.FrameReadErrorCap,
			JitterPct:    cfg.IngestJitterPct,
		}, logging.NewServiceLogger(cfg, "ingest"))
		adapters[cam.ID] = adapter

		go func(a *ingest.Adapter) {
			if err := a.Run(ingestCtx); err != nil {
				log.Error().Err(err).Str("camera_id", a.CameraID()).Msg("Ingest stopped")
			}
		}(adapter)
	}

	server := api.NewServer(cfg, h, adapters)
	if err := server.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up server")
	}

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	stopIngest()
	h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if bus != nil {
		if err := bus.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Messaging shutdown failed")
		}
	}
	log.Info().Msg("Server shutdown complete")
}

// notifier avoids handing the adapters a non-nil interface wrapping a nil
// service pointer.
func notifier(bus *messaging.Service) ingest.Notifier {
	if bus == nil {
		return nil
	}
	return bus
}
