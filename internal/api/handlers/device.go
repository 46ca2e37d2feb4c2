package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"videobase-go/internal/config"
	"videobase-go/internal/device"
)

type DeviceHandler struct {
	cfg *config.Config
}

func NewDeviceHandler(cfg *config.Config) *DeviceHandler {
	return &DeviceHandler{cfg: cfg}
}

// @Summary Device information
// @Description Host identity, thermal, memory, load, and uptime snapshot
// @Tags system
// @Produce json
// @Success 200 {object} device.Info
// @Router /device-info [get]
func (h *DeviceHandler) DeviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, device.Collect(h.cfg.ServerID, h.cfg.Version))
}
