// Package messaging publishes camera lifecycle signals and detection
// alerts to NATS so fleet tooling can react without polling the server.
// The service is optional; a nil *Service is a no-op everywhere.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"videobase-go/internal/config"
	"videobase-go/internal/models"
)

type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

// statusMessage is the wire form of a camera status transition.
type statusMessage struct {
	ServerID  string `json:"server_id"`
	CameraID  string `json:"camera_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// alertMessage carries one raw detection payload to the alerts subject.
type alertMessage struct {
	ServerID  string          `json:"server_id"`
	CameraID  string          `json:"camera_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("videobase-server"),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

// PublishCameraStatus announces a source_up/source_lost transition.
func (s *Service) PublishCameraStatus(cameraID string, kind models.StatusKind) error {
	if s == nil {
		return nil
	}
	return s.publish(s.cfg.StatusSubject, statusMessage{
		ServerID:  s.cfg.ServerID,
		CameraID:  cameraID,
		Status:    string(kind),
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
}

// PublishAlert forwards a detection payload to the alerts subject.
func (s *Service) PublishAlert(d models.Detection) error {
	if s == nil {
		return nil
	}
	return s.publish(s.cfg.AlertsSubject, alertMessage{
		ServerID:  s.cfg.ServerID,
		CameraID:  d.CameraID,
		Payload:   d.Payload,
		Timestamp: d.ReceivedAt.Format(time.RFC3339Nano),
	})
}

func (s *Service) publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.conn.Publish(subject, payload)
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil || s.conn == nil {
		return nil
	}
	// Try graceful drain, fall back to immediate close
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
	}
	return nil
}
