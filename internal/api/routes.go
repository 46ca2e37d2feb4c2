package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.ServerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/device-info", s.deviceHandler.DeviceInfo)

	// Legacy single-camera path streams the first configured camera.
	s.router.GET("/ws", s.streamHandler.LegacyViewer)

	s.router.GET("/ws/:camera_id", s.streamHandler.Viewer)
	s.router.GET("/ws/:camera_id/ai", s.streamHandler.DetectionInlet)

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
