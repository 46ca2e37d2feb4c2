// Package api serves the HTTP surface: per-camera WebSocket streams, the
// detection inlet, health and device endpoints, Prometheus metrics, and
// the Swagger UI.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"videobase-go/internal/api/handlers"
	"videobase-go/internal/config"
	"videobase-go/internal/hub"
	"videobase-go/internal/ingest"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler *handlers.HealthHandler
	deviceHandler *handlers.DeviceHandler
	streamHandler *handlers.StreamHandler
}

// NewServer wires the HTTP layer over an already-running hub and the
// per-camera ingest adapters.
func NewServer(cfg *config.Config, h *hub.Hub, adapters map[string]*ingest.Adapter) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:        cfg,
		router:        router,
		healthHandler: handlers.NewHealthHandler(cfg, h, adapters),
		deviceHandler: handlers.NewDeviceHandler(cfg),
		streamHandler: handlers.NewStreamHandler(cfg, h, adapters),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting Videobase API")
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping Videobase API")
	s.streamHandler.CloseAll()
	return s.server.Shutdown(ctx)
}

func (s *Server) GetServer() *http.Server {
	return s.server
}
