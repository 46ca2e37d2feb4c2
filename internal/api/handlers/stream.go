package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"videobase-go/internal/config"
	"videobase-go/internal/hub"
	"videobase-go/internal/ingest"
	"videobase-go/internal/models"
)

const writeTimeout = 10 * time.Second

// StreamHandler owns both WebSocket surfaces: the per-camera viewer stream
// and the detection inlet AI producers push into.
type StreamHandler struct {
	cfg      *config.Config
	hub      *hub.Hub
	adapters map[string]*ingest.Adapter
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewStreamHandler(cfg *config.Config, h *hub.Hub, adapters map[string]*ingest.Adapter) *StreamHandler {
	return &StreamHandler{
		cfg:      cfg,
		hub:      h,
		adapters: adapters,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers connect from arbitrary origins on the LAN.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// @Summary Per-camera viewer stream
// @Description WebSocket delivering frame, ai, and status messages for one camera
// @Tags stream
// @Param camera_id path string true "Camera ID"
// @Router /ws/{camera_id} [get]
func (h *StreamHandler) Viewer(c *gin.Context) {
	h.serveViewer(c, c.Param("camera_id"))
}

// @Summary Legacy viewer stream
// @Description WebSocket streaming the first configured camera
// @Tags stream
// @Router /ws [get]
func (h *StreamHandler) LegacyViewer(c *gin.Context) {
	h.serveViewer(c, h.cfg.DefaultCameraID())
}

func (h *StreamHandler) serveViewer(c *gin.Context, cameraID string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.track(conn)
	defer h.untrack(conn)
	defer conn.Close()

	logger := log.With().Str("camera_id", cameraID).Str("remote", conn.RemoteAddr().String()).Logger()

	if _, ok := h.cfg.CameraByID(cameraID); !ok {
		h.write(conn, models.NewErrorMessage("unknown camera: "+cameraID))
		logger.Warn().Msg("Viewer requested unknown camera")
		return
	}

	// Subscribe before the handshake so anything published after the
	// client reads "connected" is guaranteed to reach it.
	sub := h.hub.Subscribe(cameraID)
	defer h.hub.Unsubscribe(sub)

	if err := h.write(conn, models.NewConnectedMessage(cameraID)); err != nil {
		return
	}
	logger.Info().Int("viewers", h.hub.SubscriberCount(cameraID)).Msg("Viewer connected")
	defer logger.Info().Msg("Viewer disconnected")

	// Drain client messages so pings are answered and closure is noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case f := <-sub.Frames():
			if err := h.write(conn, models.NewFrameMessage(f)); err != nil {
				return
			}
		case ev := <-sub.Events():
			var msg models.WireMessage
			switch e := ev.(type) {
			case models.Detection:
				msg = models.NewDetectionMessage(e)
			case models.Status:
				if e.Kind != models.StatusSourceLost {
					logger.Debug().Str("status", string(e.Kind)).Msg("Camera status changed")
					continue
				}
				msg = models.NewUnavailableMessage(cameraID)
			default:
				continue
			}
			if err := h.write(conn, msg); err != nil {
				return
			}
		case <-sub.Done():
			return
		case <-clientGone:
			return
		}
	}
}

// @Summary Detection inlet
// @Description WebSocket accepting raw JSON detection payloads for one camera
// @Tags stream
// @Param camera_id path string true "Camera ID"
// @Router /ws/{camera_id}/ai [get]
func (h *StreamHandler) DetectionInlet(c *gin.Context) {
	cameraID := c.Param("camera_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.track(conn)
	defer h.untrack(conn)
	defer conn.Close()

	logger := log.With().Str("camera_id", cameraID).Str("remote", conn.RemoteAddr().String()).Logger()

	adapter, ok := h.adapters[cameraID]
	if !ok {
		h.write(conn, models.NewErrorMessage("unknown camera: "+cameraID))
		logger.Warn().Msg("Detection producer targeted unknown camera")
		return
	}

	logger.Info().Msg("Detection producer connected")
	defer logger.Info().Msg("Detection producer disconnected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := adapter.SubmitDetection(payload); err != nil {
			logger.Warn().Err(err).Msg("Rejected detection payload")
			if werr := h.write(conn, models.NewErrorMessage(err.Error())); werr != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, msg models.WireMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (h *StreamHandler) track(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *StreamHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// CloseAll tears down every open WebSocket so shutdown does not wait on
// idle clients.
func (h *StreamHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
	}
}
