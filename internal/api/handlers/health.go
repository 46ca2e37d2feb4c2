package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"videobase-go/internal/config"
	"videobase-go/internal/hub"
	"videobase-go/internal/ingest"
	"videobase-go/internal/models"
)

type HealthHandler struct {
	cfg      *config.Config
	hub      *hub.Hub
	adapters map[string]*ingest.Adapter
	started  time.Time
}

func NewHealthHandler(cfg *config.Config, h *hub.Hub, adapters map[string]*ingest.Adapter) *HealthHandler {
	return &HealthHandler{
		cfg:      cfg,
		hub:      h,
		adapters: adapters,
		started:  time.Now(),
	}
}

type HealthResponse struct {
	Status   string                         `json:"status" example:"healthy"`
	ServerID string                         `json:"server_id" example:"videobase-1"`
	Cameras  map[string]models.CameraStatus `json:"cameras"`
}

type ServerInfoResponse struct {
	ServerID  string                         `json:"server_id" example:"videobase-1"`
	Status    string                         `json:"status" example:"running"`
	Version   string                         `json:"version" example:"5.0.0"`
	UptimeSec int64                          `json:"uptime_sec"`
	Cameras   map[string]models.CameraStatus `json:"cameras"`
}

func (h *HealthHandler) cameraStatuses() map[string]models.CameraStatus {
	out := make(map[string]models.CameraStatus, len(h.cfg.Cameras))
	for _, cam := range h.cfg.Cameras {
		clients := h.hub.SubscriberCount(cam.ID)
		if a, ok := h.adapters[cam.ID]; ok {
			out[cam.ID] = a.Snapshot(clients)
		} else {
			out[cam.ID] = models.CameraStatus{Name: cam.Name, Clients: clients}
		}
	}
	return out
}

// @Summary Health check
// @Description Server liveness plus per-camera connection state
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		ServerID: h.cfg.ServerID,
		Cameras:  h.cameraStatuses(),
	})
}

// @Summary Server information
// @Description Identity, version, uptime, and camera overview
// @Tags health
// @Produce json
// @Success 200 {object} ServerInfoResponse
// @Router / [get]
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, ServerInfoResponse{
		ServerID:  h.cfg.ServerID,
		Status:    "running",
		Version:   h.cfg.Version,
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Cameras:   h.cameraStatuses(),
	})
}
