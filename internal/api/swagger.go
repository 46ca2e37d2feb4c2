package api

import (
	"net/http"

	_ "videobase-go/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "Videobase API",
			"version":     s.config.Version,
			"description": "Multi-camera live video distribution with AI detection overlays",
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":          "/health",
				"server_info":     "/",
				"device_info":     "/device-info",
				"viewer_stream":   "/ws/{camera_id}",
				"detection_inlet": "/ws/{camera_id}/ai",
				"metrics":         "/metrics",
			},
			"server_id": s.config.ServerID,
			"port":      s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
